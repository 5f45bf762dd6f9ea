package builder

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/spark/internal/core/domain"
	"go.trai.ch/spark/internal/core/ports"
	"go.trai.ch/zerr"
)

// resolution is the outcome of resolving one import specifier.
type resolution struct {
	span domain.ImportSpan
	// url replaces the specifier. Empty leaves it untouched.
	url string
	// dependency reports whether url is a module served by this server.
	dependency bool
}

// rewriteImports resolves every import in code, recovering missing packages
// once, and returns the rewritten code with its dependency URLs.
func (b *Builder) rewriteImports(ctx context.Context, path, code string) (string, []string, error) {
	ctx, span := b.tracer.Start(ctx, "rewrite", ports.WithAttribute("path", path))
	defer span.End()

	spans, err := b.scanner.Scan(ctx, []byte(code))
	if err != nil {
		return "", nil, domain.NewBuildError("Import scan failed", path, zerr.Wrap(err, domain.ErrScanFailed.Error()))
	}

	resolved, missing := b.resolveAll(path, spans)
	if len(missing) > 0 {
		span.SetAttribute("recovered", len(missing))
		if _, err := b.resolver.RecoverMissingImports(ctx, missing); err != nil {
			return "", nil, domain.NewBuildError("Package recovery failed", path, zerr.Wrap(err, domain.ErrRecoveryFailed.Error()))
		}
		resolved, missing = b.resolveAll(path, spans)
	}
	if len(missing) > 0 {
		cause := zerr.With(
			zerr.Wrap(domain.ErrMissingImport, fmt.Sprintf("cannot resolve %s", quoteAll(missing))),
			"specifiers", missing,
		)
		return "", nil, domain.NewBuildError("Missing import", path, cause)
	}

	return applyRewrites(code, resolved), dependencies(resolved), nil
}

func (b *Builder) resolveAll(importer string, spans []domain.ImportSpan) ([]resolution, []string) {
	resolved := make([]resolution, 0, len(spans))
	var missing []string
	for _, s := range spans {
		r, ok := b.resolve(importer, s)
		if !ok {
			if !slices.Contains(missing, s.Specifier) {
				missing = append(missing, s.Specifier)
			}
			continue
		}
		resolved = append(resolved, r)
	}
	return resolved, missing
}

// resolve maps one specifier to a served URL. The boolean is false only for
// bare specifiers the package resolver does not know.
func (b *Builder) resolve(importer string, s domain.ImportSpan) (resolution, bool) {
	spec := s.Specifier
	switch {
	case isExternal(spec):
		return resolution{span: s}, true
	case strings.HasPrefix(spec, "/"):
		return resolution{span: s, dependency: true, url: spec}, true
	case strings.HasPrefix(spec, "./"), strings.HasPrefix(spec, "../"):
		target := filepath.Join(filepath.Dir(importer), filepath.FromSlash(spec))
		url, ok := b.mapper.FileToURL(target)
		if !ok {
			// Left as written; the browser reports the 404 itself.
			return resolution{span: s}, true
		}
		if needsProxy(target) {
			url += domain.ProxySuffix
		}
		return resolution{span: s, dependency: true, url: url}, true
	}

	url, ok := b.resolver.ResolveImport(spec)
	if !ok {
		return resolution{}, false
	}
	if isExternal(url) {
		return resolution{span: s, url: url}, true
	}
	return resolution{span: s, dependency: true, url: url}, true
}

func isExternal(spec string) bool {
	for _, prefix := range []string{"http://", "https://", "data:", "//"} {
		if strings.HasPrefix(spec, prefix) {
			return true
		}
	}
	return false
}

func needsProxy(path string) bool {
	switch filepath.Ext(path) {
	case ".js", ".mjs", "":
		return false
	default:
		return true
	}
}

// applyRewrites replaces specifiers back to front so earlier offsets stay valid.
func applyRewrites(code string, resolved []resolution) string {
	edits := slices.Clone(resolved)
	slices.SortFunc(edits, func(a, b resolution) int {
		return b.span.Start - a.span.Start
	})

	out := code
	for _, r := range edits {
		if r.url == "" || r.url == r.span.Specifier {
			continue
		}
		if r.span.Start < 0 || r.span.End > len(out) || r.span.Start > r.span.End {
			continue
		}
		out = out[:r.span.Start] + r.url + out[r.span.End:]
	}
	return out
}

func dependencies(resolved []resolution) []string {
	deps := make([]string, 0, len(resolved))
	for _, r := range resolved {
		if r.dependency && !slices.Contains(deps, r.url) {
			deps = append(deps, r.url)
		}
	}
	return deps
}

func quoteAll(specs []string) string {
	quoted := make([]string, len(specs))
	for i, s := range specs {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, ", ")
}
