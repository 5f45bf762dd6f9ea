// Package packages resolves bare import specifiers through an import map
// and the installed node_modules tree.
package packages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"go.trai.ch/spark/internal/core/domain"
	"go.trai.ch/spark/internal/core/ports"
	"go.trai.ch/zerr"
)

const defaultEntry = "index.js"

var _ ports.PackageResolver = (*Resolver)(nil)

// Resolver holds the current import map. Entries from the configured import
// map file take precedence over packages discovered in node_modules.
type Resolver struct {
	mu      sync.RWMutex
	current *domain.ImportMap

	importMapPath string
	nodeModules   string
	urlPrefix     string
	logger        ports.Logger
}

// New creates a Resolver and performs the initial scan.
func New(cfg domain.PackagesConfig, logger ports.Logger) (*Resolver, error) {
	r := &Resolver{
		importMapPath: cfg.ImportMap,
		nodeModules:   cfg.NodeModules,
		urlPrefix:     strings.TrimSuffix(cfg.URLPrefix, "/"),
		logger:        logger,
	}
	if _, err := r.Refresh(); err != nil {
		return nil, err
	}
	return r, nil
}

// ResolveImport returns the URL for specifier from the current import map.
func (r *Resolver) ResolveImport(specifier string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current.Resolve(specifier)
}

// RecoverMissingImports rescans the import map and node_modules after
// specifiers failed to resolve, and returns the refreshed map.
func (r *Resolver) RecoverMissingImports(ctx context.Context, specifiers []string) (*domain.ImportMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.logger.Info(fmt.Sprintf("rescanning packages for missing imports: %s", strings.Join(specifiers, ", ")))
	return r.Refresh()
}

// Refresh rebuilds the import map from disk and returns a copy of it.
func (r *Resolver) Refresh() (*domain.ImportMap, error) {
	im := &domain.ImportMap{Imports: make(map[string]string)}
	r.indexNodeModules(im)

	if r.importMapPath != "" {
		explicit, err := readImportMap(r.importMapPath)
		if err != nil {
			return nil, err
		}
		for spec, url := range explicit.Imports {
			im.Imports[spec] = url
		}
		im.Scopes = explicit.Scopes
	}

	r.mu.Lock()
	r.current = im
	r.mu.Unlock()
	return im.Clone(), nil
}

// ImportMapPath returns the absolute path of the configured import map, if any.
func (r *Resolver) ImportMapPath() string {
	return r.importMapPath
}

// Current returns a copy of the import map in use.
func (r *Resolver) Current() *domain.ImportMap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current.Clone()
}

func readImportMap(p string) (*domain.ImportMap, error) {
	// #nosec G304 -- path comes from the project configuration
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &domain.ImportMap{}, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", p)
	}

	var im domain.ImportMap
	if err := json.Unmarshal(data, &im); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrImportMapParseFailed.Error()), "path", p)
	}
	return &im, nil
}

// indexNodeModules adds one exact and one trailing-slash entry per installed package.
func (r *Resolver) indexNodeModules(im *domain.ImportMap) {
	if r.nodeModules == "" {
		return
	}
	for _, name := range r.packageNames() {
		pkgDir := filepath.Join(r.nodeModules, filepath.FromSlash(name))
		entry, err := entryPoint(pkgDir)
		if err != nil {
			r.logger.Warn(fmt.Sprintf("skipping package %s: %v", name, err))
			continue
		}
		base := r.urlPrefix + "/" + name + "/"
		im.Imports[name] = base + entry
		im.Imports[name+"/"] = base
	}
}

// packageNames lists top-level and scoped packages under node_modules.
func (r *Resolver) packageNames() []string {
	dirs, err := os.ReadDir(r.nodeModules)
	if err != nil {
		return nil
	}

	var names []string
	for _, d := range dirs {
		if !d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			continue
		}
		if !strings.HasPrefix(d.Name(), "@") {
			names = append(names, d.Name())
			continue
		}
		scoped, err := os.ReadDir(filepath.Join(r.nodeModules, d.Name()))
		if err != nil {
			continue
		}
		for _, s := range scoped {
			if s.IsDir() {
				names = append(names, d.Name()+"/"+s.Name())
			}
		}
	}
	return names
}

type packageJSON struct {
	Module  string          `json:"module"`
	Main    string          `json:"main"`
	Exports json.RawMessage `json:"exports"`
}

// entryPoint picks the browser entry of a package: the "." export, then
// module, then main, then index.js.
func entryPoint(pkgDir string) (string, error) {
	// #nosec G304 -- path is inside the configured node_modules
	data, err := os.ReadFile(filepath.Join(pkgDir, "package.json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return defaultEntry, nil
		}
		return "", err
	}

	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return "", err
	}

	for _, candidate := range []string{rootExport(pkg.Exports), pkg.Module, pkg.Main} {
		if candidate != "" {
			return normalizeEntry(candidate), nil
		}
	}
	return defaultEntry, nil
}

// rootExport understands the string form and the "." key of the object form,
// preferring the import condition over default.
func rootExport(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var m map[string]json.RawMessage
	if json.Unmarshal(raw, &m) != nil {
		return ""
	}
	dot, ok := m["."]
	if !ok {
		return ""
	}
	if json.Unmarshal(dot, &s) == nil {
		return s
	}
	var conditions map[string]json.RawMessage
	if json.Unmarshal(dot, &conditions) != nil {
		return ""
	}
	for _, c := range []string{"browser", "import", "default"} {
		if json.Unmarshal(conditions[c], &s) == nil && s != "" {
			return s
		}
	}
	return ""
}

func normalizeEntry(entry string) string {
	return strings.TrimPrefix(path.Clean("/"+entry), "/")
}
