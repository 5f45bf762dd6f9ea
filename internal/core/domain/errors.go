// Package domain defines the core types of the dev server.
package domain

import "go.trai.ch/zerr"

var (
	// ErrNotFound is returned when a request URL maps to no file on disk.
	ErrNotFound = zerr.New("not found")

	// ErrBuildFailed is returned when the transform pipeline fails for a file.
	ErrBuildFailed = zerr.New("build failed")

	// ErrMissingImport is returned when an import specifier cannot be resolved after recovery.
	ErrMissingImport = zerr.New("missing import")

	// ErrCacheInconsistency is recorded when a verified cache entry diverges from a fresh build.
	ErrCacheInconsistency = zerr.New("cache inconsistency")

	// ErrTransformTimeout is returned when a plugin transform exceeds its time budget.
	ErrTransformTimeout = zerr.New("transform timed out")

	// ErrNoPlugin is returned when no plugin can handle a file extension.
	ErrNoPlugin = zerr.New("no plugin can handle file")

	// ErrOutputMissing is returned when a build did not produce the requested output kind.
	ErrOutputMissing = zerr.New("build produced no output for requested kind")

	// ErrFileReadFailed is returned when a source file cannot be read.
	ErrFileReadFailed = zerr.New("failed to read source file")

	// ErrFileHashFailed is returned when hashing a file fails.
	ErrFileHashFailed = zerr.New("failed to hash file content")

	// ErrScanFailed is returned when import scanning fails.
	ErrScanFailed = zerr.New("failed to scan imports")

	// ErrRecoveryFailed is returned when the package resolver cannot refresh its import map.
	ErrRecoveryFailed = zerr.New("failed to recover missing imports")

	// ErrStoreCreateFailed is returned when the persistent cache cannot be created.
	ErrStoreCreateFailed = zerr.New("failed to create persistent cache")

	// ErrStoreReadFailed is returned when a persistent cache entry cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read cache entry")

	// ErrStoreUnmarshalFailed is returned when a persistent cache entry cannot be decoded.
	ErrStoreUnmarshalFailed = zerr.New("failed to unmarshal cache entry")

	// ErrStoreMarshalFailed is returned when a cache entry cannot be encoded.
	ErrStoreMarshalFailed = zerr.New("failed to marshal cache entry")

	// ErrStoreWriteFailed is returned when a persistent cache entry cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write cache entry")

	// ErrStoreDeleteFailed is returned when persistent cache entries cannot be removed.
	ErrStoreDeleteFailed = zerr.New("failed to delete cache entries")

	// ErrUnknownCacheBackend is returned when the configured cache backend is not supported.
	ErrUnknownCacheBackend = zerr.New("unknown cache backend, expected 'file', 'sqlite', 's3' or 'none'")

	// ErrMissingBucket is returned when the s3 cache backend has no bucket configured.
	ErrMissingBucket = zerr.New("cache.bucket is required for the s3 backend")

	// ErrInvalidExclude is returned when an exclude pattern is not a valid glob.
	ErrInvalidExclude = zerr.New("invalid exclude pattern")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrInvalidMount is returned when a mount entry is malformed.
	ErrInvalidMount = zerr.New("invalid mount, url must start with '/'")

	// ErrImportMapParseFailed is returned when the import map file is not valid JSON.
	ErrImportMapParseFailed = zerr.New("failed to parse import map")

	// ErrServerFailed is returned when the HTTP server stops unexpectedly.
	ErrServerFailed = zerr.New("dev server failed")

	// ErrWatcherFailed is returned when the file watcher cannot be started.
	ErrWatcherFailed = zerr.New("failed to start file watcher")
)
