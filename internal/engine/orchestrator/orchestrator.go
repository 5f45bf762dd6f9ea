// Package orchestrator answers module requests and file changes by
// coordinating the build cache, the builder and the hot update engine.
package orchestrator

import (
	"context"
	"mime"
	"net/http"
	"slices"
	"strings"

	"go.trai.ch/spark/internal/core/domain"
	"go.trai.ch/spark/internal/core/ports"
	"go.trai.ch/spark/internal/engine/buildcache"
	"go.trai.ch/spark/internal/engine/builder"
	"go.trai.ch/spark/internal/engine/hmr"
	"go.trai.ch/spark/internal/engine/modgraph"
	"go.trai.ch/zerr"
)

// Orchestrator holds no state of its own.
type Orchestrator struct {
	mapper  ports.URLMapper
	cache   *buildcache.Cache
	builder *builder.Builder
	engine  *hmr.Engine
	graph   *modgraph.Store
	scanner ports.ImportScanner
	hasher  ports.Hasher
	tracer  ports.Tracer
	envTag  string
}

// New creates a new Orchestrator. envTag becomes part of every CacheKey.
func New(
	mapper ports.URLMapper,
	cache *buildcache.Cache,
	b *builder.Builder,
	engine *hmr.Engine,
	graph *modgraph.Store,
	scanner ports.ImportScanner,
	hasher ports.Hasher,
	tracer ports.Tracer,
	envTag string,
) *Orchestrator {
	return &Orchestrator{
		mapper:  mapper,
		cache:   cache,
		builder: b,
		engine:  engine,
		graph:   graph,
		scanner: scanner,
		hasher:  hasher,
		tracer:  tracer,
		envTag:  envTag,
	}
}

// Handle resolves, builds or loads, and frames the module at req.URL.
func (o *Orchestrator) Handle(ctx context.Context, req domain.ModuleRequest) (*domain.ModuleResponse, error) {
	ctx, span := o.tracer.Start(ctx, "request", ports.WithAttribute("url", req.URL))
	defer span.End()

	fr, err := o.mapper.URLToFile(req.URL)
	if err != nil {
		return nil, err
	}

	key := domain.NewCacheKey(fr.Path, req.Mode, o.envTag)
	gen := o.cache.Generation(fr.Path)
	entry, hit, err := o.cache.Get(ctx, key, func(ctx context.Context) (*domain.CacheEntry, error) {
		return o.builder.Build(ctx, key)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttribute("cache.hit", hit)

	if !hit {
		entry, err = o.builder.Build(ctx, key)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		// A change during the build leaves it uncached; the next request rebuilds.
		o.cache.PutIfCurrent(ctx, key, entry, gen)
	}

	body, contentType, err := o.frame(ctx, req, fr, entry)
	if err != nil {
		return nil, err
	}

	etag := `"` + o.hasher.HashBytes(body) + `"`
	if !req.CacheBusting() && req.IfNoneMatch == etag {
		return &domain.ModuleResponse{Status: http.StatusNotModified, ETag: etag}, nil
	}
	return &domain.ModuleResponse{
		Status:      http.StatusOK,
		ContentType: contentType,
		ETag:        etag,
		Body:        body,
	}, nil
}

// HandleChange drops cached and running builds of path and notifies clients.
func (o *Orchestrator) HandleChange(path string) {
	o.builder.Forget(path)
	o.cache.InvalidateFile(path)
	o.engine.OnFileChange(path)
}

func (o *Orchestrator) frame(
	ctx context.Context,
	req domain.ModuleRequest,
	fr domain.FileRequest,
	entry *domain.CacheEntry,
) ([]byte, string, error) {
	out, ok := entry.Primary(fr.Kind)
	if !ok {
		return nil, "", zerr.With(zerr.With(zerr.Wrap(domain.ErrOutputMissing, "cannot frame response"),
			"path", fr.Path), "kind", fr.Kind)
	}

	switch {
	case fr.SourceMap:
		if out.Map == "" {
			return nil, "", zerr.With(zerr.Wrap(domain.ErrNotFound, "no source map"), "url", req.URL)
		}
		return []byte(out.Map), "application/json; charset=utf-8", nil
	case fr.Proxy:
		code, err := o.bustReplaced(ctx, req, fr.URL, o.builder.Proxy(fr.URL, fr.Kind, out))
		return []byte(code), contentType(".js"), err
	case fr.Kind == ".js":
		code, err := o.bustReplaced(ctx, req, fr.URL, out.Code)
		return []byte(code), contentType(".js"), err
	default:
		return []byte(out.Code), contentType(fr.Kind), nil
	}
}

// bustReplaced appends the cache-busting parameter to imports of modules
// marked for replacement, clearing the mark. Only hot update fetches do this.
// Specifiers are rewritten at their scanned import positions; other string
// literals naming the same URL are left alone.
func (o *Orchestrator) bustReplaced(ctx context.Context, req domain.ModuleRequest, url, code string) (string, error) {
	if !req.CacheBusting() {
		return code, nil
	}
	entry, ok := o.graph.GetEntry(url)
	if !ok || len(entry.Dependencies) == 0 {
		return code, nil
	}

	spans, err := o.scanner.Scan(ctx, []byte(code))
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrScanFailed.Error()), "url", url)
	}

	stamp := req.Query.Get(domain.CacheBustParam)
	busted := make(map[string]string)
	for _, dep := range entry.Dependencies {
		if o.graph.ClearReplacement(dep) {
			busted[dep] = dep + "?" + domain.CacheBustParam + "=" + stamp
		}
	}
	if len(busted) == 0 {
		return code, nil
	}

	slices.SortFunc(spans, func(a, b domain.ImportSpan) int {
		return b.Start - a.Start
	})
	out := code
	for _, s := range spans {
		target, ok := busted[s.Specifier]
		if !ok || s.Start < 0 || s.End > len(out) || s.Start > s.End {
			continue
		}
		out = out[:s.Start] + target + out[s.End:]
	}
	return out, nil
}

func contentType(kind string) string {
	switch kind {
	case ".js":
		return "application/javascript; charset=utf-8"
	case ".map", ".json":
		return "application/json; charset=utf-8"
	}
	if t := mime.TypeByExtension(kind); t != "" {
		return t
	}
	return "application/octet-stream"
}
