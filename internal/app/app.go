// Package app implements the application layer for spark.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/spark/internal/adapters/cas"
	"go.trai.ch/spark/internal/adapters/hmrsocket"
	"go.trai.ch/spark/internal/adapters/httpserver"
	"go.trai.ch/spark/internal/adapters/metrics"
	"go.trai.ch/spark/internal/adapters/mount"
	"go.trai.ch/spark/internal/adapters/packages"
	"go.trai.ch/spark/internal/adapters/s3store"
	"go.trai.ch/spark/internal/adapters/sqlitestore"
	"go.trai.ch/spark/internal/adapters/telemetry"
	"go.trai.ch/spark/internal/adapters/watcher"
	"go.trai.ch/spark/internal/core/domain"
	"go.trai.ch/spark/internal/core/ports"
	"go.trai.ch/spark/internal/engine/buildcache"
	"go.trai.ch/spark/internal/engine/builder"
	"go.trai.ch/spark/internal/engine/hmr"
	"go.trai.ch/spark/internal/engine/modgraph"
	"go.trai.ch/spark/internal/engine/orchestrator"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	logger       ports.Logger
	hasher       ports.Hasher
	scanner      ports.ImportScanner
	plugins      []ports.Plugin
	graph        *modgraph.Store
	metrics      *metrics.Prometheus
	tracer       ports.Tracer

	listener net.Listener
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	log ports.Logger,
	hasher ports.Hasher,
	scanner ports.ImportScanner,
	plugins []ports.Plugin,
	graph *modgraph.Store,
	m *metrics.Prometheus,
	tracer ports.Tracer,
) *App {
	return &App{
		configLoader: loader,
		logger:       log,
		hasher:       hasher,
		scanner:      scanner,
		plugins:      plugins,
		graph:        graph,
		metrics:      m,
		tracer:       tracer,
	}
}

// WithListener makes Serve accept on ln instead of listening on the configured address.
// This is primarily used for testing.
func (a *App) WithListener(ln net.Listener) *App {
	a.listener = ln
	return a
}

// ServeOptions override the loaded configuration from the command line.
type ServeOptions struct {
	Host         string
	Port         int
	NoHMR        bool
	HTTP2        bool
	CacheBackend string
}

// Serve loads the configuration found from cwd and runs the dev server until
// ctx is cancelled.
//
//nolint:cyclop,funlen // orchestration function
func (a *App) Serve(ctx context.Context, cwd string, opts ServeOptions) error {
	// 1. Load the configuration
	cfg, err := a.configLoader.Load(cwd)
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}
	if err := applyServeOptions(cfg, opts); err != nil {
		return err
	}

	// 2. Initialize Telemetry
	tp := setupOTel(a.logger)
	defer func() {
		_ = tp.Shutdown(context.WithoutCancel(ctx))
	}()

	// 3. Resolution
	mapper, err := mount.NewFromConfig(cfg)
	if err != nil {
		return err
	}
	resolver, err := packages.New(cfg.Packages, a.logger)
	if err != nil {
		return err
	}

	// 4. Persistent tier
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// 5. Engine
	hub := hmrsocket.NewHub(a.logger,
		hmrsocket.WithMetrics(a.metrics),
		hmrsocket.WithAcceptRecorder(a.graph),
	)
	defer hub.Close()

	b := builder.New(a.plugins, mapper, resolver, a.scanner, a.graph, a.hasher, hub, a.logger, a.tracer,
		builder.WithTransformTimeout(cfg.Dev.TransformTimeout),
		builder.WithHMR(cfg.Dev.HMREnabled()),
		builder.WithEnv(cfg.Env),
		builder.WithMetrics(a.metrics),
	)

	cacheOpts := []buildcache.Option{buildcache.WithMetrics(a.metrics)}
	if store != nil {
		cacheOpts = append(cacheOpts, buildcache.WithPersistentStore(store))
	}
	cache := buildcache.New(a.hasher, hub, a.logger, a.tracer, cacheOpts...)
	defer cache.Wait()

	engine := hmr.New(a.graph, mapper, hub, hmr.WithMetrics(a.metrics))
	orch := orchestrator.New(mapper, cache, b, engine, a.graph, a.scanner, a.hasher, a.tracer, cfg.Dev.EnvTag)

	server := httpserver.New(orch, hub, a.logger, httpserver.Options{
		HTTP2:   cfg.Dev.HTTP2,
		HMR:     cfg.Dev.HMREnabled(),
		Metrics: a.metrics.Handler(),
	})

	// 6. File watching
	w, err := watcher.NewWatcher(a.logger, cfg.Exclude)
	if err != nil {
		return err
	}
	defer func() {
		_ = w.Stop()
	}()

	debouncer := watcher.NewDebouncer(cfg.Dev.Debounce, func(paths []string) {
		a.onChange(resolver, orch, paths)
	})
	defer debouncer.Stop()

	ln := a.listener
	if ln == nil {
		addr := net.JoinHostPort(cfg.Dev.Host, strconv.Itoa(cfg.Dev.Port))
		ln, err = net.Listen("tcp", addr)
		if err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrServerFailed.Error()), "addr", addr)
		}
	}

	// 7. Run server and watcher concurrently
	g, ctx := errgroup.WithContext(ctx)

	if err := w.Start(ctx, cfg.Root); err != nil {
		_ = ln.Close()
		return err
	}

	g.Go(func() error {
		a.logger.Info(fmt.Sprintf("serving %s on http://%s", cfg.Root, ln.Addr()))
		return server.Serve(ctx, ln)
	})

	g.Go(func() error {
		for event := range w.Events() {
			debouncer.Add(event.Path)
		}
		return nil
	})

	return g.Wait()
}

// onChange handles one debounced batch of changed paths.
func (a *App) onChange(resolver *packages.Resolver, orch *orchestrator.Orchestrator, paths []string) {
	for _, p := range paths {
		if importMap := resolver.ImportMapPath(); importMap != "" && p == importMap {
			if _, err := resolver.Refresh(); err != nil {
				a.logger.Error(err)
			}
		}
		orch.HandleChange(p)
	}
}

func applyServeOptions(cfg *domain.Config, opts ServeOptions) error {
	if opts.Host != "" {
		cfg.Dev.Host = opts.Host
	}
	if opts.Port != 0 {
		cfg.Dev.Port = opts.Port
	}
	if opts.NoHMR {
		disabled := false
		cfg.Dev.HMR = &disabled
	}
	if opts.HTTP2 {
		cfg.Dev.HTTP2 = true
	}

	if opts.CacheBackend == "" || opts.CacheBackend == cfg.Cache.Backend {
		return nil
	}
	cfg.Cache.Backend = opts.CacheBackend
	switch opts.CacheBackend {
	case domain.CacheBackendFile:
		cfg.Cache.Dir = filepath.Join(cfg.Root, domain.DefaultCachePath())
	case domain.CacheBackendSQLite:
		cfg.Cache.Dir = filepath.Join(cfg.Root, domain.DefaultCacheDBPath())
	case domain.CacheBackendS3:
		if cfg.Cache.Bucket == "" {
			return domain.ErrMissingBucket
		}
	case domain.CacheBackendNone:
	default:
		return zerr.With(domain.ErrUnknownCacheBackend, "backend", opts.CacheBackend)
	}
	return nil
}

// openStore opens the persistent tier selected by the configuration.
// It returns a nil store for the none backend.
func openStore(cfg *domain.Config) (ports.PersistentStore, func(), error) {
	noop := func() {}

	switch cfg.Cache.Backend {
	case domain.CacheBackendFile:
		store, err := cas.NewStore(cfg.Cache.Dir)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	case domain.CacheBackendSQLite:
		store, err := sqlitestore.Open(cfg.Cache.Dir)
		if err != nil {
			return nil, noop, err
		}
		return store, func() { _ = store.Close() }, nil
	case domain.CacheBackendS3:
		client := s3store.NewClient(cfg.Cache)
		return s3store.New(client, cfg.Cache.Bucket, cfg.Cache.Prefix), noop, nil
	case domain.CacheBackendNone:
		return nil, noop, nil
	default:
		return nil, noop, zerr.With(domain.ErrUnknownCacheBackend, "backend", cfg.Cache.Backend)
	}
}

// Clean empties the persistent build cache of the project found from cwd.
func (a *App) Clean(ctx context.Context, cwd string) error {
	cfg, err := a.configLoader.Load(cwd)
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}

	var errs error

	// Helper to remove a path and log the action
	remove := func(path string, name string) {
		a.logger.Info(fmt.Sprintf("removing %s...", name))
		if err := os.RemoveAll(path); err != nil {
			errs = errors.Join(errs, zerr.Wrap(err, fmt.Sprintf("failed to remove %s", name)))
			return
		}
		a.logger.Info(fmt.Sprintf("removed %s", name))
	}

	switch cfg.Cache.Backend {
	case domain.CacheBackendFile:
		remove(cfg.Cache.Dir, "build cache")
	case domain.CacheBackendSQLite:
		for _, suffix := range []string{"", "-wal", "-shm"} {
			remove(cfg.Cache.Dir+suffix, "build cache database"+suffix)
		}
	case domain.CacheBackendS3:
		a.logger.Info(fmt.Sprintf("clearing s3://%s/%s...", cfg.Cache.Bucket, cfg.Cache.Prefix))
		store := s3store.New(s3store.NewClient(cfg.Cache), cfg.Cache.Bucket, cfg.Cache.Prefix)
		if err := store.Clear(ctx); err != nil {
			return err
		}
		a.logger.Info("cleared remote build cache")
	case domain.CacheBackendNone:
		a.logger.Info("persistent cache is disabled, nothing to clean")
	}

	return errs
}

// setupOTel registers a tracer provider that reports slow builds to the logger.
// Tracers created from the global provider before this call pick it up too.
func setupOTel(logger ports.Logger) *sdktrace.TracerProvider {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(
			telemetry.NewSlowSpanLogger(logger, telemetry.DefaultSlowThreshold, "build", "transform"),
		),
	)
	otel.SetTracerProvider(tp)
	return tp
}
