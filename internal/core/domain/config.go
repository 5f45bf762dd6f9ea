package domain

import "time"

// Cache backends.
const (
	CacheBackendFile   = "file"
	CacheBackendSQLite = "sqlite"
	CacheBackendS3     = "s3"
	CacheBackendNone   = "none"
)

// Config is the dev server configuration read from spark.yaml.
type Config struct {
	// Root is the directory containing the config file. It is not read from YAML.
	Root string `yaml:"-"`

	// Mount maps directories, relative to Root, to URL prefixes.
	Mount map[string]string `yaml:"mount"`

	// Exclude lists doublestar patterns, relative to Root, that are never served or watched.
	Exclude []string `yaml:"exclude"`

	Dev      DevConfig         `yaml:"dev"`
	Cache    CacheConfig       `yaml:"cache"`
	Packages PackagesConfig    `yaml:"packages"`
	Env      map[string]string `yaml:"env"`
}

// DevConfig configures the HTTP server and the build pipeline.
type DevConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	HMR              *bool         `yaml:"hmr"`
	HTTP2            bool          `yaml:"http2"`
	EnvTag           string        `yaml:"envTag"`
	TransformTimeout time.Duration `yaml:"transformTimeout"`
	Debounce         time.Duration `yaml:"debounce"`
}

// HMREnabled reports whether hot updates are enabled. Defaults to true.
func (d DevConfig) HMREnabled() bool {
	return d.HMR == nil || *d.HMR
}

// CacheConfig selects and configures the persistent tier.
type CacheConfig struct {
	Backend  string `yaml:"backend"`
	Dir      string `yaml:"dir"`
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

// PackagesConfig configures bare specifier resolution.
type PackagesConfig struct {
	ImportMap   string `yaml:"importMap"`
	NodeModules string `yaml:"nodeModules"`
	URLPrefix   string `yaml:"urlPrefix"`
}
