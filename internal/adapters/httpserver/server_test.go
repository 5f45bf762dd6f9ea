package httpserver_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/spark/internal/adapters/httpserver"
	"go.trai.ch/spark/internal/core/domain"
	"go.trai.ch/spark/internal/core/ports/mocks"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

type handlerFunc func(ctx context.Context, req domain.ModuleRequest) (*domain.ModuleResponse, error)

func (f handlerFunc) Handle(ctx context.Context, req domain.ModuleRequest) (*domain.ModuleResponse, error) {
	return f(ctx, req)
}

func ok(body string) handlerFunc {
	return func(context.Context, domain.ModuleRequest) (*domain.ModuleResponse, error) {
		return &domain.ModuleResponse{
			Status:      http.StatusOK,
			ContentType: "application/javascript; charset=utf-8",
			ETag:        `"abc"`,
			Body:        []byte(body),
		}, nil
	}
}

func newServer(t *testing.T, modules httpserver.ModuleHandler, opts httpserver.Options) (*httpserver.Server, *mocks.MockLogger) {
	t.Helper()
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	socket := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusSwitchingProtocols)
	})
	return httpserver.New(modules, socket, logger, opts), logger
}

func do(t *testing.T, h http.Handler, method, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_ServesModules(t *testing.T) {
	var got domain.ModuleRequest
	srv, _ := newServer(t, handlerFunc(func(ctx context.Context, req domain.ModuleRequest) (*domain.ModuleResponse, error) {
		got = req
		return ok("export {}")(ctx, req)
	}), httpserver.Options{})

	rec := do(t, srv, http.MethodGet, "/src/app.js?mtime=42", http.Header{"If-None-Match": {`"old"`}})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "export {}", rec.Body.String())
	assert.Equal(t, "application/javascript; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `"abc"`, rec.Header().Get("ETag"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	assert.Equal(t, "/src/app.js", got.URL)
	assert.Equal(t, "42", got.Query.Get("mtime"))
	assert.Equal(t, `"old"`, got.IfNoneMatch)
	assert.Equal(t, domain.ModeClient, got.Mode)
}

func TestServer_SSRMode(t *testing.T) {
	var mode domain.Mode
	srv, _ := newServer(t, handlerFunc(func(ctx context.Context, req domain.ModuleRequest) (*domain.ModuleResponse, error) {
		mode = req.Mode
		return ok("")(ctx, req)
	}), httpserver.Options{})

	do(t, srv, http.MethodGet, "/src/app.js?ssr", nil)
	assert.Equal(t, domain.ModeSSR, mode)
}

func TestServer_NotModified(t *testing.T) {
	srv, _ := newServer(t, handlerFunc(func(context.Context, domain.ModuleRequest) (*domain.ModuleResponse, error) {
		return &domain.ModuleResponse{Status: http.StatusNotModified, ETag: `"abc"`}, nil
	}), httpserver.Options{})

	rec := do(t, srv, http.MethodGet, "/src/app.js", nil)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, `"abc"`, rec.Header().Get("ETag"))
}

func TestServer_HeadHasNoBody(t *testing.T) {
	srv, _ := newServer(t, ok("export {}"), httpserver.Options{})

	rec := do(t, srv, http.MethodHead, "/src/app.js", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "9", rec.Header().Get("Content-Length"))
	assert.Empty(t, rec.Body.String())
}

func TestServer_ErrorStatus(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		logsError bool
	}{
		{
			name:   "not found",
			err:    zerr.With(zerr.Wrap(domain.ErrNotFound, "no file mounted at url"), "url", "/x.js"),
			status: http.StatusNotFound,
		},
		{
			name:   "build failed",
			err:    domain.NewBuildError("Invalid JSON", "/src/a.json", zerr.New("unexpected end")),
			status: http.StatusInternalServerError,
		},
		{
			name:   "transform timeout",
			err:    domain.NewBuildError("Transform timed out", "/src/a.js", zerr.Wrap(domain.ErrTransformTimeout, "script exceeded 1s")),
			status: http.StatusGatewayTimeout,
		},
		{
			name:      "unexpected",
			err:       zerr.New("disk on fire"),
			status:    http.StatusInternalServerError,
			logsError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, logger := newServer(t, handlerFunc(func(context.Context, domain.ModuleRequest) (*domain.ModuleResponse, error) {
				return nil, tt.err
			}), httpserver.Options{})
			if tt.logsError {
				logger.EXPECT().Error(gomock.Any()).Times(1)
			}

			rec := do(t, srv, http.MethodGet, "/src/a.js", nil)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.err.Error())
		})
	}
}

func TestServer_InternalRoutes(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "spark_builds_total 1")
	})
	srv, _ := newServer(t, ok("module"), httpserver.Options{HMR: true, Metrics: metrics})

	rec := do(t, srv, http.MethodGet, domain.HMRClientPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "export function createHotContext")
	assert.Contains(t, rec.Body.String(), "applyUpdate(msg.url, msg.bubbled, msg.root)")

	rec = do(t, srv, http.MethodGet, domain.MetricsPath, nil)
	assert.Equal(t, "spark_builds_total 1", rec.Body.String())

	rec = do(t, srv, http.MethodGet, domain.HMRSocketPath, nil)
	assert.Equal(t, http.StatusSwitchingProtocols, rec.Code)
}

func TestServer_HMRDisabledFallsThroughToModules(t *testing.T) {
	srv, _ := newServer(t, ok("module"), httpserver.Options{})

	rec := do(t, srv, http.MethodGet, domain.HMRClientPath, nil)
	assert.Equal(t, "module", rec.Body.String())
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	srv, _ := newServer(t, ok("export {}"), httpserver.Options{HTTP2: true})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, ln)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/src/app.js")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.True(t, strings.HasPrefix(string(body), "export"))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
