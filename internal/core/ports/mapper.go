package ports

import "go.trai.ch/spark/internal/core/domain"

// URLMapper translates between request URLs and source files.
//
//go:generate mockgen -source=mapper.go -destination=mocks/mock_mapper.go -package=mocks
type URLMapper interface {
	// URLToFile maps a request URL to a source file.
	// It returns an error matching domain.ErrNotFound when nothing is mounted there.
	URLToFile(url string) (domain.FileRequest, error)
	// FileToURL returns the canonical module URL for an absolute file path.
	FileToURL(path string) (string, bool)
}
