package plugins

import (
	"context"
	"mime"
	"path/filepath"

	"go.trai.ch/spark/internal/core/domain"
	"go.trai.ch/spark/internal/core/ports"
)

// assetExts are served verbatim under their own extension.
var assetExts = []string{
	".html", ".htm", ".svg", ".txt", ".xml", ".webmanifest",
	".png", ".jpg", ".jpeg", ".gif", ".webp", ".avif", ".ico",
	".woff", ".woff2", ".ttf", ".wasm",
}

type asset struct {
	passthrough
}

// NewAsset creates the fallback plugin for static files.
func NewAsset() ports.Plugin {
	return &asset{passthrough{name: "asset", exts: assetExts}}
}

// CanHandle accepts the known asset extensions and any other extension
// the mime table knows about.
func (a *asset) CanHandle(ext string) bool {
	return a.passthrough.CanHandle(ext) || (ext != "" && mime.TypeByExtension(ext) != "")
}

// Transform emits the file under its own extension. .htm is served as .html
// so pages get the client runtime.
func (a *asset) Transform(ctx context.Context, in domain.TransformInput) (domain.BuildOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	kind := filepath.Ext(in.Path)
	if kind == ".htm" {
		kind = ".html"
	}
	return domain.BuildOutput{kind: {Code: string(in.Contents)}}, nil
}
