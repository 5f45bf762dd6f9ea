package ports

import (
	"context"

	"go.trai.ch/spark/internal/core/domain"
)

// Plugin transforms one kind of source file into typed outputs.
// Transform must be idempotent: identical input yields byte-identical output.
//
//go:generate mockgen -source=plugin.go -destination=mocks/mock_plugin.go -package=mocks
type Plugin interface {
	// Name identifies the plugin in logs and errors.
	Name() string
	// CanHandle reports whether the plugin accepts files with the given extension.
	CanHandle(ext string) bool
	// Transform produces the outputs for one file.
	Transform(ctx context.Context, in domain.TransformInput) (domain.BuildOutput, error)
}
