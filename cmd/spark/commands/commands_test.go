package commands_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/spark/cmd/spark/commands"
	"go.trai.ch/spark/internal/app"
	"go.trai.ch/spark/internal/build"
)

type mockApp struct {
	serveFunc func(ctx context.Context, cwd string, opts app.ServeOptions) error
	cleanFunc func(ctx context.Context, cwd string) error
}

func (m *mockApp) Serve(ctx context.Context, cwd string, opts app.ServeOptions) error {
	if m.serveFunc != nil {
		return m.serveFunc(ctx, cwd, opts)
	}
	return nil
}

func (m *mockApp) Clean(ctx context.Context, cwd string) error {
	if m.cleanFunc != nil {
		return m.cleanFunc(ctx, cwd)
	}
	return nil
}

func TestCommands_Serve(t *testing.T) {
	t.Run("wires flags correctly", func(t *testing.T) {
		var capturedOpts app.ServeOptions
		var capturedDir string

		mock := &mockApp{
			serveFunc: func(_ context.Context, cwd string, opts app.ServeOptions) error {
				capturedDir = cwd
				capturedOpts = opts
				return nil
			},
		}

		cli := commands.New(mock)
		cli.SetArgs([]string{"serve", "-C", "web", "--port", "3000", "--host", "0.0.0.0",
			"--no-hmr", "--http2", "--cache-backend", "sqlite"})

		require.NoError(t, cli.Execute(context.Background()))
		assert.Equal(t, "web", capturedDir)
		assert.Equal(t, app.ServeOptions{
			Host:         "0.0.0.0",
			Port:         3000,
			NoHMR:        true,
			HTTP2:        true,
			CacheBackend: "sqlite",
		}, capturedOpts)
	})

	t.Run("reads environment overrides", func(t *testing.T) {
		t.Setenv("SPARK_PORT", "4000")
		t.Setenv("SPARK_CACHE_BACKEND", "none")

		var capturedOpts app.ServeOptions
		mock := &mockApp{
			serveFunc: func(_ context.Context, _ string, opts app.ServeOptions) error {
				capturedOpts = opts
				return nil
			},
		}

		cli := commands.New(mock)
		cli.SetArgs([]string{"serve"})

		require.NoError(t, cli.Execute(context.Background()))
		assert.Equal(t, 4000, capturedOpts.Port)
		assert.Equal(t, "none", capturedOpts.CacheBackend)
	})

	t.Run("defaults leave the configuration alone", func(t *testing.T) {
		var capturedOpts app.ServeOptions
		var capturedDir string
		mock := &mockApp{
			serveFunc: func(_ context.Context, cwd string, opts app.ServeOptions) error {
				capturedDir = cwd
				capturedOpts = opts
				return nil
			},
		}

		cli := commands.New(mock)
		cli.SetArgs([]string{"serve"})

		require.NoError(t, cli.Execute(context.Background()))
		assert.Equal(t, ".", capturedDir)
		assert.Equal(t, app.ServeOptions{}, capturedOpts)
	})

	t.Run("returns error on serve failure", func(t *testing.T) {
		mock := &mockApp{
			serveFunc: func(context.Context, string, app.ServeOptions) error {
				return errors.New("address in use")
			},
		}

		cli := commands.New(mock)
		cli.SetArgs([]string{"serve"})
		cli.SetOutput(new(bytes.Buffer), new(bytes.Buffer))

		err := cli.Execute(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "address in use")
	})
}

func TestCommands_Clean(t *testing.T) {
	var capturedDir string
	mock := &mockApp{
		cleanFunc: func(_ context.Context, cwd string) error {
			capturedDir = cwd
			return nil
		},
	}

	cli := commands.New(mock)
	cli.SetArgs([]string{"clean", "--dir", "site"})

	require.NoError(t, cli.Execute(context.Background()))
	assert.Equal(t, "site", capturedDir)
}

func TestCommands_Version(t *testing.T) {
	cli := commands.New(&mockApp{})

	buf := new(bytes.Buffer)
	cli.SetOutput(buf, buf)
	cli.SetArgs([]string{"version"})

	require.NoError(t, cli.Execute(context.Background()))
	assert.Contains(t, buf.String(), "spark version "+build.Version)
}
