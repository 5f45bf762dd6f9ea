package domain

import (
	"maps"
	"strings"
)

// Mode is the rendering mode a file is built for.
type Mode uint8

const (
	// ModeClient builds for the browser.
	ModeClient Mode = iota
	// ModeSSR builds for server-side rendering.
	ModeSSR
)

// String returns the stable name of the mode.
func (m Mode) String() string {
	if m == ModeSSR {
		return "ssr"
	}
	return "client"
}

// CacheKey identifies one buildable artifact under one build mode.
type CacheKey struct {
	Path string
	Mode Mode
	Env  string
}

// NewCacheKey creates a CacheKey for the given absolute path, mode and environment tag.
func NewCacheKey(path string, mode Mode, env string) CacheKey {
	return CacheKey{Path: path, Mode: mode, Env: env}
}

// String returns the stable string form used by the persistent tier.
func (k CacheKey) String() string {
	var b strings.Builder
	b.Grow(len(k.Path) + len(k.Env) + 16)
	b.WriteString(k.Path)
	b.WriteString("?mode=")
	b.WriteString(k.Mode.String())
	b.WriteString("&env=")
	b.WriteString(k.Env)
	return b.String()
}

// OutputFile is a single typed output of a transform.
type OutputFile struct {
	Code string `json:"code"`
	Map  string `json:"map,omitzero"`
}

// BuildOutput maps an output kind (a file extension such as ".js") to its content.
type BuildOutput map[string]OutputFile

// Equal reports whether both outputs contain byte-identical content for every kind.
func (o BuildOutput) Equal(other BuildOutput) bool {
	return maps.Equal(o, other)
}

// CacheEntry is a finished build for one CacheKey.
type CacheEntry struct {
	Output     BuildOutput `json:"output"`
	SourceHash string      `json:"sourceHash"`
}

// Primary returns the output for kind and whether it exists.
func (e *CacheEntry) Primary(kind string) (OutputFile, bool) {
	if e == nil {
		return OutputFile{}, false
	}
	out, ok := e.Output[kind]
	return out, ok
}

// TransformInput is what a plugin receives for one file.
type TransformInput struct {
	Path         string
	Contents     []byte
	IsDev        bool
	IsSSR        bool
	IsHMREnabled bool
}

// ImportSpan locates one import specifier inside a JS source.
// Start and End are byte offsets of the specifier text, excluding quotes.
type ImportSpan struct {
	Specifier string
	Start     int
	End       int
	Dynamic   bool
}
