// Package loader provides multi-source configuration loading
package loader

import (
	"os"
	"sort"

	"speedtest-core/internal/config/schema"
	"speedtest-core/internal/config/source"
	"speedtest-core/internal/constants"
	coreerrors "speedtest-core/internal/core/errors"
	corelog "speedtest-core/internal/core/log"
)

// Loader loads configuration from multiple sources in priority order
type Loader struct {
	sources []source.Source
}

// NewLoader creates a new Loader
func NewLoader() *Loader {
	return &Loader{
		sources: make([]source.Source, 0),
	}
}

// AddSource adds a configuration source
func (l *Loader) AddSource(s source.Source) {
	l.sources = append(l.sources, s)
}

// Load loads configuration from all sources in priority order
// Lower priority sources are loaded first, then higher priority sources override
func (l *Loader) Load() (*schema.Root, error) {
	if len(l.sources) == 0 {
		return nil, coreerrors.New(coreerrors.CodeInvalidConfig, "no configuration sources registered")
	}

	sorted := make([]source.Source, len(l.sources))
	copy(sorted, l.sources)
	sort.Stable(source.ByPriority(sorted))

	cfg := &schema.Root{}
	for _, s := range sorted {
		corelog.Debugf("Loading configuration from source: %s (priority %d)", s.Name(), s.Priority())
		if err := s.LoadInto(cfg); err != nil {
			return nil, coreerrors.Wrapf(err, coreerrors.CodeInvalidConfig,
				"failed to load configuration from source %s", s.Name())
		}
	}

	return cfg, nil
}

// LoaderBuilder helps build a Loader with common configurations
type LoaderBuilder struct {
	loader       *Loader
	prefix       string
	configFile   string
	appType      string
	appEnv       string
	enableDotEnv bool
}

// NewLoaderBuilder creates a new LoaderBuilder
func NewLoaderBuilder() *LoaderBuilder {
	return &LoaderBuilder{
		loader:       NewLoader(),
		prefix:       constants.EnvPrefix,
		enableDotEnv: true,
	}
}

// WithPrefix sets the environment variable prefix
func (b *LoaderBuilder) WithPrefix(prefix string) *LoaderBuilder {
	b.prefix = prefix
	return b
}

// WithConfigFile sets the configuration file path
func (b *LoaderBuilder) WithConfigFile(path string) *LoaderBuilder {
	b.configFile = path
	return b
}

// WithAppType sets the application type (server/client)
func (b *LoaderBuilder) WithAppType(appType string) *LoaderBuilder {
	b.appType = appType
	return b
}

// WithAppEnv sets the application environment (development/production)
func (b *LoaderBuilder) WithAppEnv(env string) *LoaderBuilder {
	b.appEnv = env
	return b
}

// WithDotEnv enables or disables .env file loading
func (b *LoaderBuilder) WithDotEnv(enabled bool) *LoaderBuilder {
	b.enableDotEnv = enabled
	return b
}

// Build creates the configured Loader
func (b *LoaderBuilder) Build() *Loader {
	b.loader.AddSource(source.NewAppDefaultSource(b.appType))

	configFile := source.FindConfigFile(b.configFile, b.appType)
	if configFile != "" {
		b.loader.AddSource(source.NewYAMLSource(configFile))
		corelog.Debugf("Using config file: %s", configFile)
	}

	if b.enableDotEnv {
		b.loader.AddSource(source.NewDotEnvSource(source.FindDotEnvDirs(configFile), b.appEnv))
	}

	b.loader.AddSource(source.NewEnvSource(b.prefix))

	return b.loader
}

// Load is a convenience function that creates a loader and loads configuration.
// SPEEDTEST_ENV selects the .env.<env> files.
func Load(configFile, appType string) (*schema.Root, error) {
	return NewLoaderBuilder().
		WithConfigFile(configFile).
		WithAppType(appType).
		WithAppEnv(os.Getenv(constants.EnvPrefix + "_ENV")).
		Build().
		Load()
}

// LoadServer loads responder configuration
func LoadServer(configFile string) (*schema.Root, error) {
	return Load(configFile, "server")
}

// LoadClient loads prober configuration
func LoadClient(configFile string) (*schema.Root, error) {
	return Load(configFile, "client")
}
