package watcher_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/spark/internal/adapters/watcher"
	"go.trai.ch/spark/internal/core/domain"
	"go.trai.ch/spark/internal/core/ports"
	"go.trai.ch/spark/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func startWatcher(t *testing.T, root string, ignores []string) <-chan ports.WatchEvent {
	t.Helper()
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	w, err := watcher.NewWatcher(logger, ignores)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx, root))
	t.Cleanup(func() {
		cancel()
		_ = w.Stop()
	})

	out := make(chan ports.WatchEvent, 100)
	go func() {
		for ev := range w.Events() {
			out <- ev
		}
		close(out)
	}()
	return out
}

func waitFor(t *testing.T, events <-chan ports.WatchEvent, path string) ports.WatchEvent {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "event stream closed")
			if ev.Path == path {
				return ev
			}
		case <-deadline:
			t.Fatalf("no event for %s", path)
		}
	}
}

func TestWatcher_ReportsWrites(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "app.js")
	require.NoError(t, os.WriteFile(file, []byte("a"), domain.FilePerm))

	events := startWatcher(t, root, nil)
	require.NoError(t, os.WriteFile(file, []byte("b"), domain.FilePerm))

	ev := waitFor(t, events, file)
	assert.Contains(t, []ports.WatchOp{ports.OpWrite, ports.OpCreate}, ev.Operation)
}

func TestWatcher_WatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	events := startWatcher(t, root, nil)

	dir := filepath.Join(root, "components")
	require.NoError(t, os.Mkdir(dir, domain.DirPerm))
	waitFor(t, events, dir)

	file := filepath.Join(dir, "button.js")
	require.NoError(t, os.WriteFile(file, []byte("x"), domain.FilePerm))
	waitFor(t, events, file)
}

func TestWatcher_IgnoresPatterns(t *testing.T) {
	root := t.TempDir()
	events := startWatcher(t, root, []string{"**/*.tmp"})

	ignored := filepath.Join(root, "scratch.tmp")
	kept := filepath.Join(root, "kept.js")
	require.NoError(t, os.WriteFile(ignored, []byte("x"), domain.FilePerm))
	require.NoError(t, os.WriteFile(kept, []byte("x"), domain.FilePerm))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			require.NotEqual(t, ignored, ev.Path)
			if ev.Path == kept {
				return
			}
		case <-deadline:
			t.Fatal("no event for kept file")
		}
	}
}
