// Package plugins provides the built-in transform plugins.
package plugins

import (
	"context"
	"slices"

	"go.trai.ch/spark/internal/core/domain"
	"go.trai.ch/spark/internal/core/ports"
)

// Defaults returns the built-in plugins in dispatch order.
func Defaults() []ports.Plugin {
	return []ports.Plugin{
		NewScript(),
		NewStylesheet(),
		NewJSON(),
		NewAsset(),
	}
}

// passthrough serves a file unchanged under a single output kind.
type passthrough struct {
	name string
	exts []string
	kind string
}

func (p *passthrough) Name() string {
	return p.name
}

func (p *passthrough) CanHandle(ext string) bool {
	return slices.Contains(p.exts, ext)
}

func (p *passthrough) Transform(ctx context.Context, in domain.TransformInput) (domain.BuildOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return domain.BuildOutput{p.kind: {Code: string(in.Contents)}}, nil
}

// NewScript creates the plugin for JavaScript modules.
// Both .js and .mjs sources are served as .js.
func NewScript() ports.Plugin {
	return &passthrough{name: "script", exts: []string{".js", ".mjs"}, kind: ".js"}
}

// NewStylesheet creates the plugin for CSS files.
func NewStylesheet() ports.Plugin {
	return &passthrough{name: "stylesheet", exts: []string{".css"}, kind: ".css"}
}
