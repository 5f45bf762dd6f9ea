package ports

import (
	"context"

	"go.trai.ch/spark/internal/core/domain"
)

// PackageResolver resolves bare import specifiers to package URLs.
//
//go:generate mockgen -destination=mocks/mock_resolver.go -package=mocks -source=resolver.go
type PackageResolver interface {
	// ResolveImport returns the URL for specifier, or false when it is unknown.
	ResolveImport(specifier string) (string, bool)
	// RecoverMissingImports refreshes the import map after specifiers failed to resolve.
	RecoverMissingImports(ctx context.Context, specifiers []string) (*domain.ImportMap, error)
}
