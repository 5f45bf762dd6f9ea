// Package config provides the configuration loader for spark.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.trai.ch/spark/internal/core/domain"
	"go.trai.ch/spark/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Defaults applied to every loaded configuration.
const (
	DefaultHost             = "localhost"
	DefaultPort             = 8080
	DefaultTransformTimeout = 30 * time.Second
	DefaultDebounce         = 50 * time.Millisecond
	DefaultNodeModules      = "node_modules"
)

// DefaultExcludes are never served or watched.
var DefaultExcludes = []string{domain.SparkDirName + "/**", ".git/**"}

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load finds spark.yaml in cwd or the nearest parent directory.
// Without a config file, cwd is served with defaults.
func (l *Loader) Load(cwd string) (*domain.Config, error) {
	cfg := &domain.Config{Root: filepath.Clean(cwd)}

	configPath, found := findConfiguration(cwd)
	if found {
		if err := readAndUnmarshalYAML(configPath, cfg); err != nil {
			return nil, zerr.With(err, "path", configPath)
		}
		cfg.Root = filepath.Dir(configPath)
	} else {
		l.Logger.Info("no " + domain.ConfigFileName + " found, serving " + cfg.Root + " with defaults")
	}

	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	resolvePaths(cfg)
	return cfg, nil
}

func findConfiguration(cwd string) (string, bool) {
	currentDir := cwd
	for {
		candidate := filepath.Join(currentDir, domain.ConfigFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", false
		}
		currentDir = parentDir
	}
}

func applyDefaults(cfg *domain.Config) {
	if len(cfg.Mount) == 0 {
		cfg.Mount = map[string]string{".": "/"}
	}
	cfg.Exclude = append(cfg.Exclude, DefaultExcludes...)

	if cfg.Dev.Host == "" {
		cfg.Dev.Host = DefaultHost
	}
	if cfg.Dev.Port == 0 {
		cfg.Dev.Port = DefaultPort
	}
	if cfg.Dev.TransformTimeout <= 0 {
		cfg.Dev.TransformTimeout = DefaultTransformTimeout
	}
	if cfg.Dev.Debounce <= 0 {
		cfg.Dev.Debounce = DefaultDebounce
	}

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = domain.CacheBackendFile
	}
	if cfg.Cache.Dir == "" {
		switch cfg.Cache.Backend {
		case domain.CacheBackendSQLite:
			cfg.Cache.Dir = domain.DefaultCacheDBPath()
		default:
			cfg.Cache.Dir = domain.DefaultCachePath()
		}
	}

	if cfg.Packages.NodeModules == "" {
		cfg.Packages.NodeModules = DefaultNodeModules
	}
	if cfg.Packages.URLPrefix == "" {
		cfg.Packages.URLPrefix = domain.DefaultPackageURLPrefix
	}
}

func validate(cfg *domain.Config) error {
	for dir, url := range cfg.Mount {
		if !strings.HasPrefix(url, "/") {
			return zerr.With(zerr.With(domain.ErrInvalidMount, "dir", dir), "url", url)
		}
	}
	if !strings.HasPrefix(cfg.Packages.URLPrefix, "/") {
		return zerr.With(domain.ErrInvalidMount, "url", cfg.Packages.URLPrefix)
	}

	for _, pattern := range cfg.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return zerr.With(domain.ErrInvalidExclude, "pattern", pattern)
		}
	}

	switch cfg.Cache.Backend {
	case domain.CacheBackendFile, domain.CacheBackendSQLite, domain.CacheBackendNone:
	case domain.CacheBackendS3:
		if cfg.Cache.Bucket == "" {
			return domain.ErrMissingBucket
		}
	default:
		return zerr.With(domain.ErrUnknownCacheBackend, "backend", cfg.Cache.Backend)
	}
	return nil
}

// resolvePaths makes every configured path absolute against the config root.
func resolvePaths(cfg *domain.Config) {
	mounts := make(map[string]string, len(cfg.Mount))
	for dir, url := range cfg.Mount {
		mounts[resolveRoot(cfg.Root, dir)] = url
	}
	cfg.Mount = mounts

	if cfg.Cache.Backend != domain.CacheBackendS3 {
		cfg.Cache.Dir = resolveRoot(cfg.Root, cfg.Cache.Dir)
	}
	cfg.Packages.NodeModules = resolveRoot(cfg.Root, cfg.Packages.NodeModules)
	if cfg.Packages.ImportMap != "" {
		cfg.Packages.ImportMap = resolveRoot(cfg.Root, cfg.Packages.ImportMap)
	}
}

func resolveRoot(root, configured string) string {
	if filepath.IsAbs(configured) {
		return filepath.Clean(configured)
	}
	return filepath.Clean(filepath.Join(root, configured))
}

// readAndUnmarshalYAML reads a YAML file and unmarshals it into the target struct.
func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is found by walking up from cwd
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}

	if parseErr := yaml.Unmarshal(configFile, target); parseErr != nil {
		return zerr.Wrap(parseErr, domain.ErrConfigParseFailed.Error())
	}
	return nil
}
