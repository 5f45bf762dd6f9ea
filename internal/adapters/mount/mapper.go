// Package mount maps request URLs onto mounted directories and back.
package mount

import (
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.trai.ch/spark/internal/core/domain"
	"go.trai.ch/spark/internal/core/ports"
	"go.trai.ch/zerr"
)

const indexFile = "index.html"

var _ ports.URLMapper = (*Mapper)(nil)

// scriptSources are tried in order when a .js URL is requested.
var scriptSources = []string{".js", ".mjs"}

type mount struct {
	dir     string
	url     string
	exclude bool
}

// Mapper is immutable after construction and safe for concurrent use.
type Mapper struct {
	root     string
	mounts   []mount
	excludes []string
}

// New creates a Mapper for the given absolute mounts (dir → url prefix).
// Exclude patterns are matched against paths relative to root.
// Installed packages are mounted at pkgPrefix and are never excluded.
func New(root string, mounts map[string]string, excludes []string, pkgPrefix, nodeModules string) (*Mapper, error) {
	m := &Mapper{root: root, excludes: excludes}
	for dir, url := range mounts {
		if !strings.HasPrefix(url, "/") {
			return nil, zerr.With(zerr.With(domain.ErrInvalidMount, "dir", dir), "url", url)
		}
		m.mounts = append(m.mounts, mount{dir: filepath.Clean(dir), url: trimSlash(url), exclude: true})
	}
	if nodeModules != "" && pkgPrefix != "" {
		m.mounts = append(m.mounts, mount{dir: filepath.Clean(nodeModules), url: trimSlash(pkgPrefix)})
	}

	// Longest URL prefix wins; ties broken by dir for determinism.
	slices.SortFunc(m.mounts, func(a, b mount) int {
		if d := len(b.url) - len(a.url); d != 0 {
			return d
		}
		return strings.Compare(a.dir, b.dir)
	})
	return m, nil
}

// NewFromConfig creates a Mapper from a loaded configuration.
func NewFromConfig(cfg *domain.Config) (*Mapper, error) {
	return New(cfg.Root, cfg.Mount, cfg.Exclude, cfg.Packages.URLPrefix, cfg.Packages.NodeModules)
}

// URLToFile maps url onto a source file.
func (m *Mapper) URLToFile(url string) (domain.FileRequest, error) {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	clean := path.Clean("/" + url)
	if strings.HasSuffix(url, "/") && clean != "/" {
		clean += "/"
	}

	req := domain.FileRequest{URL: clean}
	target := clean
	switch {
	case strings.HasSuffix(target, domain.SourceMapSuffix):
		req.SourceMap = true
		target = strings.TrimSuffix(target, domain.SourceMapSuffix)
	case strings.HasSuffix(target, domain.ProxySuffix):
		req.Proxy = true
		target = strings.TrimSuffix(target, domain.ProxySuffix)
	}

	for _, mnt := range m.mounts {
		rel, ok := mnt.relative(target)
		if !ok {
			continue
		}
		file, ok := m.locate(mnt, rel, req.Proxy)
		if !ok {
			continue
		}
		req.Path = file
		req.Kind = OutputKind(filepath.Ext(file))
		return req, nil
	}
	return domain.FileRequest{}, zerr.With(zerr.Wrap(domain.ErrNotFound, "no file mounted at url"), "url", url)
}

// FileToURL returns the module URL for the file at absolute path p.
func (m *Mapper) FileToURL(p string) (string, bool) {
	p = filepath.Clean(p)

	best := -1
	var bestRel string
	for i, mnt := range m.mounts {
		rel, err := filepath.Rel(mnt.dir, p)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if best == -1 || len(mnt.dir) > len(m.mounts[best].dir) {
			best, bestRel = i, rel
		}
	}
	if best == -1 || (m.mounts[best].exclude && m.excluded(p)) {
		return "", false
	}

	rel := filepath.ToSlash(bestRel)
	if ext := path.Ext(rel); OutputKind(ext) != ext {
		rel = strings.TrimSuffix(rel, ext) + OutputKind(ext)
	}
	return joinURL(m.mounts[best].url, rel), true
}

// Excluded reports whether the absolute path p matches an exclude pattern.
func (m *Mapper) Excluded(p string) bool {
	return m.excluded(p)
}

func (m *Mapper) locate(mnt mount, rel string, proxy bool) (string, bool) {
	base := filepath.Join(mnt.dir, filepath.FromSlash(rel))

	var candidates []string
	switch {
	case rel == "" || strings.HasSuffix(rel, "/"):
		candidates = []string{filepath.Join(base, indexFile)}
	case !proxy && path.Ext(rel) == ".js":
		stem := strings.TrimSuffix(base, ".js")
		for _, ext := range scriptSources {
			candidates = append(candidates, stem+ext)
		}
	default:
		candidates = []string{base, filepath.Join(base, indexFile)}
	}

	for _, c := range candidates {
		info, err := os.Stat(c)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if mnt.exclude && m.excluded(c) {
			continue
		}
		return c, true
	}
	return "", false
}

func (m *Mapper) excluded(p string) bool {
	rel, err := filepath.Rel(m.root, p)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range m.excludes {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// relative returns the part of url below the mount prefix.
func (mnt mount) relative(url string) (string, bool) {
	if mnt.url == "" {
		return strings.TrimPrefix(url, "/"), true
	}
	if url == mnt.url {
		return "", true
	}
	if rest, ok := strings.CutPrefix(url, mnt.url+"/"); ok {
		return rest, true
	}
	return "", false
}

// OutputKind maps a source extension to the kind of output it is served as.
func OutputKind(ext string) string {
	if ext == ".mjs" {
		return ".js"
	}
	return ext
}

func joinURL(prefix, rel string) string {
	return prefix + "/" + rel
}

func trimSlash(url string) string {
	return strings.TrimSuffix(url, "/")
}
