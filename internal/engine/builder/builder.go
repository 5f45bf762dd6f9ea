// Package builder turns one source file into a framed build output.
package builder

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.trai.ch/spark/internal/core/domain"
	"go.trai.ch/spark/internal/core/ports"
	"go.trai.ch/spark/internal/engine/modgraph"
	"go.trai.ch/zerr"
	"golang.org/x/sync/singleflight"
)

// DefaultTransformTimeout bounds a single plugin transform.
const DefaultTransformTimeout = 30 * time.Second

// Builder runs the plugin pipeline, rewrites imports and frames the result.
// Concurrent builds of the same CacheKey share one execution.
type Builder struct {
	plugins     []ports.Plugin
	mapper      ports.URLMapper
	resolver    ports.PackageResolver
	scanner     ports.ImportScanner
	graph       *modgraph.Store
	hasher      ports.Hasher
	broadcaster ports.Broadcaster
	logger      ports.Logger
	tracer      ports.Tracer
	metrics     ports.Metrics

	timeout    time.Duration
	hmrEnabled bool
	isDev      bool
	env        map[string]string

	inFlight singleflight.Group
	// running counts executing builds per source path, by key.
	runningMu sync.Mutex
	running   map[string]map[string]int
	readFile func(string) ([]byte, error)
}

// Option configures a Builder.
type Option func(*Builder)

// WithTransformTimeout sets the time budget of a single transform.
func WithTransformTimeout(d time.Duration) Option {
	return func(b *Builder) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithHMR toggles injection of the hot update bootstrap.
func WithHMR(enabled bool) Option {
	return func(b *Builder) {
		b.hmrEnabled = enabled
	}
}

// WithEnv sets the values exposed as import.meta.env.
func WithEnv(env map[string]string) Option {
	return func(b *Builder) {
		b.env = env
	}
}

// WithProduction builds with isDev unset.
func WithProduction() Option {
	return func(b *Builder) {
		b.isDev = false
	}
}

// WithMetrics records build durations and outcomes.
func WithMetrics(m ports.Metrics) Option {
	return func(b *Builder) {
		b.metrics = m
	}
}

// WithReadFile replaces the function used to load sources.
func WithReadFile(fn func(string) ([]byte, error)) Option {
	return func(b *Builder) {
		b.readFile = fn
	}
}

// New creates a new Builder. Plugins are consulted in order.
func New(
	plugins []ports.Plugin,
	mapper ports.URLMapper,
	resolver ports.PackageResolver,
	scanner ports.ImportScanner,
	graph *modgraph.Store,
	hasher ports.Hasher,
	broadcaster ports.Broadcaster,
	logger ports.Logger,
	tracer ports.Tracer,
	opts ...Option,
) *Builder {
	b := &Builder{
		plugins:     plugins,
		mapper:      mapper,
		resolver:    resolver,
		scanner:     scanner,
		graph:       graph,
		hasher:      hasher,
		broadcaster: broadcaster,
		logger:      logger,
		tracer:      tracer,
		timeout:     DefaultTransformTimeout,
		hmrEnabled:  true,
		isDev:       true,
		readFile:    os.ReadFile,
		running:     make(map[string]map[string]int),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build returns the build for key, joining any build of the same key already
// in flight. The shared build is detached from ctx so one caller going away
// does not fail the others.
func (b *Builder) Build(ctx context.Context, key domain.CacheKey) (*domain.CacheEntry, error) {
	detached := context.WithoutCancel(ctx)
	k := key.String()
	v, err, _ := b.inFlight.Do(k, func() (any, error) {
		b.track(key.Path, k, 1)
		defer b.track(key.Path, k, -1)
		return b.build(detached, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.CacheEntry), nil
}

// Forget detaches the builds of path that are still running, so callers
// arriving after a change start a fresh build instead of joining one that may
// have read the old source.
func (b *Builder) Forget(path string) {
	b.runningMu.Lock()
	defer b.runningMu.Unlock()
	for k := range b.running[path] {
		b.inFlight.Forget(k)
	}
}

func (b *Builder) track(path, key string, delta int) {
	b.runningMu.Lock()
	defer b.runningMu.Unlock()

	keys, ok := b.running[path]
	if !ok {
		keys = make(map[string]int)
		b.running[path] = keys
	}
	keys[key] += delta
	if keys[key] <= 0 {
		delete(keys, key)
	}
	if len(keys) == 0 {
		delete(b.running, path)
	}
}

func (b *Builder) build(ctx context.Context, key domain.CacheKey) (*domain.CacheEntry, error) {
	ctx, span := b.tracer.Start(ctx, "build",
		ports.WithAttribute("path", key.Path),
		ports.WithAttribute("mode", key.Mode.String()),
	)
	defer span.End()

	start := time.Now()
	kind := filepath.Ext(key.Path)

	entry, err := b.run(ctx, key)
	if b.metrics != nil {
		b.metrics.ObserveBuild(kind, time.Since(start), err)
	}
	if err == nil {
		return entry, nil
	}

	span.RecordError(err)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	be := domain.AsBuildError(err, key.Path)
	b.logger.Error(be)
	b.broadcaster.Broadcast(domain.NewErrorMessage(be))
	return nil, be
}

func (b *Builder) run(ctx context.Context, key domain.CacheKey) (*domain.CacheEntry, error) {
	src, err := b.readFile(key.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, zerr.With(zerr.Wrap(domain.ErrNotFound, "source file disappeared"), "path", key.Path)
		}
		return nil, domain.NewBuildError("Read failed", key.Path, zerr.Wrap(err, domain.ErrFileReadFailed.Error()))
	}

	ext := filepath.Ext(key.Path)
	plugin := b.pluginFor(ext)
	if plugin == nil {
		return nil, domain.NewBuildError("No plugin", key.Path,
			zerr.Wrap(domain.ErrNoPlugin, "cannot build "+ext+" file"))
	}

	output, err := b.transform(ctx, plugin, domain.TransformInput{
		Path:         key.Path,
		Contents:     src,
		IsDev:        b.isDev,
		IsSSR:        key.Mode == domain.ModeSSR,
		IsHMREnabled: b.hotEnabled(key.Mode),
	})
	if err != nil {
		return nil, err
	}

	if js, ok := output[".js"]; ok {
		framed, err := b.processScript(ctx, key, js.Code)
		if err != nil {
			return nil, err
		}
		js.Code = framed
		output[".js"] = js
	}
	if page, ok := output[".html"]; ok {
		page.Code = b.processPage(key, page.Code)
		output[".html"] = page
	}

	return &domain.CacheEntry{
		Output:     output,
		SourceHash: b.hasher.HashBytes(src),
	}, nil
}

func (b *Builder) pluginFor(ext string) ports.Plugin {
	for _, p := range b.plugins {
		if p.CanHandle(ext) {
			return p
		}
	}
	return nil
}

// transform runs the plugin under the time budget. A plugin that ignores ctx
// keeps running in the background but no longer holds the build.
func (b *Builder) transform(ctx context.Context, plugin ports.Plugin, in domain.TransformInput) (domain.BuildOutput, error) {
	ctx, span := b.tracer.Start(ctx, "transform", ports.WithAttribute("plugin", plugin.Name()))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	type result struct {
		output domain.BuildOutput
		err    error
	}
	done := make(chan result, 1)
	go func() {
		out, err := plugin.Transform(ctx, in)
		done <- result{output: out, err: err}
	}()

	timedOut := func() error {
		return domain.NewBuildError("Transform timed out", in.Path,
			zerr.Wrap(domain.ErrTransformTimeout, plugin.Name()+" exceeded "+b.timeout.String()))
	}

	select {
	case r := <-done:
		if r.err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, timedOut()
			}
			return nil, domain.AsBuildError(r.err, in.Path)
		}
		if len(r.output) == 0 {
			return nil, domain.NewBuildError("Empty output", in.Path, domain.ErrOutputMissing)
		}
		return r.output, nil
	case <-ctx.Done():
		return nil, timedOut()
	}
}

func (b *Builder) hotEnabled(mode domain.Mode) bool {
	return b.hmrEnabled && b.isDev && mode == domain.ModeClient
}
