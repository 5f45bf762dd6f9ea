package mount_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/spark/internal/adapters/mount"
	"go.trai.ch/spark/internal/core/domain"
)

func writeFile(t *testing.T, root, rel string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), domain.DirPerm))
	require.NoError(t, os.WriteFile(p, []byte("x"), domain.FilePerm))
	return p
}

func setupMapper(t *testing.T) (*mount.Mapper, string) {
	t.Helper()
	root := t.TempDir()
	for _, f := range []string{
		"public/index.html",
		"public/docs/index.html",
		"public/style.css",
		"public/data.json",
		"src/app.js",
		"src/lib.mjs",
		"src/app.test.js",
		"node_modules/lit/index.js",
	} {
		writeFile(t, root, f)
	}

	m, err := mount.New(root, map[string]string{
		filepath.Join(root, "public"): "/",
		filepath.Join(root, "src"):    "/dist/",
	}, []string{"**/*.test.js"}, "/@pkg", filepath.Join(root, "node_modules"))
	require.NoError(t, err)
	return m, root
}

func TestMapper_URLToFile(t *testing.T) {
	m, root := setupMapper(t)

	tests := []struct {
		name string
		url  string
		want domain.FileRequest
	}{
		{
			name: "root index",
			url:  "/",
			want: domain.FileRequest{URL: "/", Path: filepath.Join(root, "public/index.html"), Kind: ".html"},
		},
		{
			name: "directory index without slash",
			url:  "/docs",
			want: domain.FileRequest{URL: "/docs", Path: filepath.Join(root, "public/docs/index.html"), Kind: ".html"},
		},
		{
			name: "script in nested mount",
			url:  "/dist/app.js",
			want: domain.FileRequest{URL: "/dist/app.js", Path: filepath.Join(root, "src/app.js"), Kind: ".js"},
		},
		{
			name: "mjs served as js",
			url:  "/dist/lib.js",
			want: domain.FileRequest{URL: "/dist/lib.js", Path: filepath.Join(root, "src/lib.mjs"), Kind: ".js"},
		},
		{
			name: "query is ignored",
			url:  "/dist/app.js?mtime=123",
			want: domain.FileRequest{URL: "/dist/app.js", Path: filepath.Join(root, "src/app.js"), Kind: ".js"},
		},
		{
			name: "stylesheet proxy",
			url:  "/style.css.proxy.js",
			want: domain.FileRequest{URL: "/style.css.proxy.js", Path: filepath.Join(root, "public/style.css"), Kind: ".css", Proxy: true},
		},
		{
			name: "source map",
			url:  "/dist/app.js.map",
			want: domain.FileRequest{URL: "/dist/app.js.map", Path: filepath.Join(root, "src/app.js"), Kind: ".js", SourceMap: true},
		},
		{
			name: "package mount",
			url:  "/@pkg/lit/index.js",
			want: domain.FileRequest{URL: "/@pkg/lit/index.js", Path: filepath.Join(root, "node_modules/lit/index.js"), Kind: ".js"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.URLToFile(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMapper_URLToFile_NotFound(t *testing.T) {
	m, _ := setupMapper(t)

	for _, url := range []string{
		"/missing.js",
		"/dist/app.test.js",
		"/dist/../../etc/passwd",
		"/dist/missing.css.proxy.js",
	} {
		t.Run(url, func(t *testing.T) {
			_, err := m.URLToFile(url)
			require.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestMapper_FileToURL(t *testing.T) {
	m, root := setupMapper(t)

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{path: filepath.Join(root, "src/app.js"), want: "/dist/app.js", ok: true},
		{path: filepath.Join(root, "src/lib.mjs"), want: "/dist/lib.js", ok: true},
		{path: filepath.Join(root, "public/style.css"), want: "/style.css", ok: true},
		{path: filepath.Join(root, "node_modules/lit/index.js"), want: "/@pkg/lit/index.js", ok: true},
		{path: filepath.Join(root, "src/app.test.js"), ok: false},
		{path: filepath.Join(root, "elsewhere/x.js"), ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := m.FileToURL(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMapper_RoundTrip(t *testing.T) {
	m, root := setupMapper(t)
	p := filepath.Join(root, "src/lib.mjs")

	url, ok := m.FileToURL(p)
	require.True(t, ok)
	fr, err := m.URLToFile(url)
	require.NoError(t, err)
	assert.Equal(t, p, fr.Path)
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := mount.New("/root", map[string]string{"/root/src": "dist"}, nil, "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrInvalidMount.Error())
}
