// Package httpserver exposes the dev server over HTTP.
package httpserver

import (
	"context"
	_ "embed"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.trai.ch/spark/internal/core/domain"
	"go.trai.ch/spark/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

//go:embed client/hmr-client.js
var hmrClient []byte

// SSRParam selects the server-side rendering build of a module.
const SSRParam = "ssr"

const shutdownTimeout = 5 * time.Second

// ModuleHandler answers module requests.
type ModuleHandler interface {
	Handle(ctx context.Context, req domain.ModuleRequest) (*domain.ModuleResponse, error)
}

// Options configures a Server.
type Options struct {
	// HTTP2 enables cleartext HTTP/2 (h2c) next to HTTP/1.1.
	HTTP2 bool
	// HMR serves the hot update socket and client runtime.
	HMR bool
	// Metrics is mounted at the metrics path when set.
	Metrics http.Handler
}

// Server routes internal endpoints and module requests.
type Server struct {
	router  chi.Router
	modules ModuleHandler
	logger  ports.Logger
	http2   bool
}

// New builds the router. socket handles the hot update websocket.
func New(modules ModuleHandler, socket http.Handler, logger ports.Logger, opts Options) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		modules: modules,
		logger:  logger,
		http2:   opts.HTTP2,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	if opts.HMR {
		s.router.Handle(domain.HMRSocketPath, socket)
		s.router.Get(domain.HMRClientPath, serveClient)
	}
	if opts.Metrics != nil {
		s.router.Handle(domain.MetricsPath, opts.Metrics)
	}
	s.router.Get("/*", s.serveModule)
	s.router.Head("/*", s.serveModule)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the root handler, wrapped for h2c when enabled.
func (s *Server) Handler() http.Handler {
	if s.http2 {
		return h2c.NewHandler(s.router, &http2.Server{})
	}
	return s.router
}

// Serve accepts connections on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return zerr.Wrap(err, domain.ErrServerFailed.Error())
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
		}
		return nil
	}
}

func (s *Server) serveModule(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := domain.ModuleRequest{
		URL:         r.URL.Path,
		Query:       query,
		IfNoneMatch: r.Header.Get("If-None-Match"),
		Mode:        domain.ModeClient,
	}
	if query.Has(SSRParam) {
		req.Mode = domain.ModeSSR
	}

	resp, err := s.modules.Handle(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	h := w.Header()
	h.Set("Cache-Control", "no-cache")
	if resp.ETag != "" {
		h.Set("ETag", resp.ETag)
	}
	if resp.Status == http.StatusNotModified {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	h.Set("Content-Type", resp.ContentType)
	h.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	w.WriteHeader(resp.Status)
	if r.Method != http.MethodHead {
		_, _ = w.Write(resp.Body)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError && !errors.Is(err, domain.ErrBuildFailed) {
		// Build failures are already reported by the builder.
		s.logger.Error(zerr.With(err, "url", r.URL.Path))
	}
	http.Error(w, err.Error(), status)
}

// StatusFor maps an error to the HTTP status it is served with.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrTransformTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func serveClient(w http.ResponseWriter, _ *http.Request) {
	h := w.Header()
	h.Set("Content-Type", "application/javascript; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	_, _ = w.Write(hmrClient)
}
