package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"speedtest-core/internal/config/schema"
	"speedtest-core/internal/config/source"
	coreerrors "speedtest-core/internal/core/errors"
)

func TestLoader_Load_NoSources(t *testing.T) {
	_, err := NewLoader().Load()
	if err == nil {
		t.Fatal("Load() should error when no sources are registered")
	}
	if !coreerrors.IsCode(err, coreerrors.CodeInvalidConfig) {
		t.Errorf("Load() error code = %v, want INVALID_CONFIG", coreerrors.GetCode(err))
	}
}

func TestLoader_Load_DefaultsOnly(t *testing.T) {
	l := NewLoader()
	l.AddSource(source.NewDefaultSource())

	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Responder.ChunkSize != 1400 {
		t.Errorf("ChunkSize = %d, want 1400", cfg.Responder.ChunkSize)
	}
	if cfg.Log.Level != schema.LogLevelInfo {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestLoader_Load_PriorityOrder(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "server.yaml")
	content := "log:\n  level: warn\nresponder:\n  chunk_size: 1200\n"
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	t.Setenv("SPEEDTEST_LOG_LEVEL", "error")

	l := NewLoader()
	// added out of order on purpose
	l.AddSource(source.NewEnvSource("SPEEDTEST"))
	l.AddSource(source.NewYAMLSource(configFile))
	l.AddSource(source.NewDefaultSource())

	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("Log.Level = %q, env should override yaml", cfg.Log.Level)
	}
	if cfg.Responder.ChunkSize != 1200 {
		t.Errorf("ChunkSize = %d, yaml should override defaults", cfg.Responder.ChunkSize)
	}
	if cfg.Responder.BatchSize != 32 {
		t.Errorf("BatchSize = %d, defaults should survive", cfg.Responder.BatchSize)
	}
}

type failingSource struct{}

func (failingSource) Name() string                { return "failing" }
func (failingSource) Priority() int               { return source.PriorityCLI }
func (failingSource) LoadInto(*schema.Root) error { return errors.New("boom") }

func TestLoader_Load_SourceError(t *testing.T) {
	l := NewLoader()
	l.AddSource(source.NewDefaultSource())
	l.AddSource(failingSource{})

	if _, err := l.Load(); err == nil {
		t.Fatal("Load() should propagate source errors")
	}
}

func TestLoaderBuilder_Build(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "client.yaml")
	if err := os.WriteFile(configFile, []byte("prober:\n  cycles: 7\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := NewLoaderBuilder().
		WithConfigFile(configFile).
		WithAppType("client").
		WithDotEnv(false).
		WithPrefix("SPEEDTEST_LOADER_TEST").
		Build().
		Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Prober.Cycles != 7 {
		t.Errorf("Prober.Cycles = %d, want 7", cfg.Prober.Cycles)
	}
	if cfg.Prober.DiscoveryPort != 13117 {
		t.Errorf("Prober.DiscoveryPort = %d, want 13117", cfg.Prober.DiscoveryPort)
	}
}

func TestLoaderBuilder_AppDefaults(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.yaml")

	load := func(appType string) *schema.Root {
		t.Helper()
		cfg, err := NewLoaderBuilder().
			WithConfigFile(missing).
			WithAppType(appType).
			WithDotEnv(false).
			WithPrefix("SPEEDTEST_LOADER_TEST").
			Build().
			Load()
		if err != nil {
			t.Fatalf("Load(%s) error = %v", appType, err)
		}
		return cfg
	}

	if got := load("client").Log.Output; got != schema.LogOutputFile {
		t.Errorf("client Log.Output = %q, want %q", got, schema.LogOutputFile)
	}
	if got := load("server").Log.Output; got != schema.LogOutputStderr {
		t.Errorf("server Log.Output = %q, want %q", got, schema.LogOutputStderr)
	}
}
