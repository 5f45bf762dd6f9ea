package ports

import (
	"context"

	"go.trai.ch/spark/internal/core/domain"
)

// ImportScanner finds import specifiers in JavaScript source.
//
//go:generate mockgen -source=scanner.go -destination=mocks/mock_scanner.go -package=mocks
type ImportScanner interface {
	// Scan returns every static and dynamic import specifier in src, ordered by position.
	Scan(ctx context.Context, src []byte) ([]domain.ImportSpan, error)
}
