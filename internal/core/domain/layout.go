package domain

import "path/filepath"

const (
	// SparkDirName is the name of the internal workspace directory.
	SparkDirName = ".spark"

	// CacheDirName is the name of the persistent build cache directory.
	CacheDirName = "cache"

	// CacheDBName is the file name of the sqlite cache backend.
	CacheDBName = "cache.db"

	// ConfigFileName is the name of the project configuration file.
	ConfigFileName = "spark.yaml"

	// InternalURLPrefix is the URL namespace reserved for the dev server itself.
	InternalURLPrefix = "/_spark"

	// HMRSocketPath is the websocket endpoint for hot update messages.
	HMRSocketPath = InternalURLPrefix + "/hmr"

	// HMRClientPath is the URL of the browser-side hot update runtime.
	HMRClientPath = InternalURLPrefix + "/hmr-client.js"

	// MetricsPath is the URL of the Prometheus scrape endpoint.
	MetricsPath = InternalURLPrefix + "/metrics"

	// DefaultPackageURLPrefix is where installed packages are mounted.
	DefaultPackageURLPrefix = "/@pkg"

	// ProxySuffix marks a JS module wrapping a non-JS import.
	ProxySuffix = ".proxy.js"

	// SourceMapSuffix marks a source map request.
	SourceMapSuffix = ".map"

	// CacheBustParam is the query parameter the client appends on hot update fetches.
	CacheBustParam = "mtime"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// DefaultCachePath returns the default path for the persistent build cache.
// It joins .spark and cache.
func DefaultCachePath() string {
	return filepath.Join(SparkDirName, CacheDirName)
}

// DefaultCacheDBPath returns the default path for the sqlite cache database.
func DefaultCacheDBPath() string {
	return filepath.Join(SparkDirName, CacheDBName)
}
