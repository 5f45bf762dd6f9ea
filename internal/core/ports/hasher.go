package ports

// Hasher defines the interface for computing content hashes.
//
//go:generate mockgen -destination=mocks/mock_hasher.go -package=mocks -source=hasher.go
type Hasher interface {
	// ComputeFileHash returns the hex encoded hash of the file content at path.
	ComputeFileHash(path string) (string, error)
	// HashBytes returns the hex encoded hash of data.
	// It must agree with ComputeFileHash for identical content.
	HashBytes(data []byte) string
}
