package source

import (
	"testing"
	"time"

	"speedtest-core/internal/config/schema"
)

func TestEnvSource_NameAndPriority(t *testing.T) {
	s := NewEnvSource("SPEEDTEST")
	if s.Name() != "env" {
		t.Errorf("Name() = %q, want %q", s.Name(), "env")
	}
	if s.Priority() != PriorityEnv {
		t.Errorf("Priority() = %d, want %d", s.Priority(), PriorityEnv)
	}
}

func TestEnvSource_LoadInto(t *testing.T) {
	t.Setenv("SPEEDTEST_LOG_LEVEL", "debug")
	t.Setenv("SPEEDTEST_RESPONDER_CHUNK_SIZE", "8192")
	t.Setenv("SPEEDTEST_RESPONDER_SEGMENT_RATE", "2500.5")
	t.Setenv("SPEEDTEST_PROBER_IDLE_TIMEOUT", "1500ms")
	t.Setenv("SPEEDTEST_PROBER_PAYLOAD_SIZE", "1000000")
	t.Setenv("SPEEDTEST_MANAGEMENT_ENABLED", "true")

	cfg := &schema.Root{}
	if err := NewEnvSource("SPEEDTEST").LoadInto(cfg); err != nil {
		t.Fatalf("LoadInto() error = %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
	if cfg.Responder.ChunkSize != 8192 {
		t.Errorf("Responder.ChunkSize = %d, want 8192", cfg.Responder.ChunkSize)
	}
	if cfg.Responder.SegmentRate != 2500.5 {
		t.Errorf("Responder.SegmentRate = %v, want 2500.5", cfg.Responder.SegmentRate)
	}
	if cfg.Prober.IdleTimeout != 1500*time.Millisecond {
		t.Errorf("Prober.IdleTimeout = %v, want 1.5s", cfg.Prober.IdleTimeout)
	}
	if cfg.Prober.PayloadSize != 1_000_000 {
		t.Errorf("Prober.PayloadSize = %d, want 1000000", cfg.Prober.PayloadSize)
	}
	if !cfg.Management.Enabled {
		t.Error("Management.Enabled should be true")
	}
}

func TestEnvSource_LoadInto_InvalidValuesIgnored(t *testing.T) {
	t.Setenv("SPEEDTEST_RESPONDER_CHUNK_SIZE", "lots")
	t.Setenv("SPEEDTEST_PROBER_DIAL_TIMEOUT", "soon")
	t.Setenv("SPEEDTEST_PROBER_NO_COLOR", "maybe")

	cfg := &schema.Root{}
	cfg.Responder.ChunkSize = 1400
	cfg.Prober.DialTimeout = 5 * time.Second

	if err := NewEnvSource("SPEEDTEST").LoadInto(cfg); err != nil {
		t.Fatalf("LoadInto() error = %v", err)
	}
	if cfg.Responder.ChunkSize != 1400 {
		t.Errorf("ChunkSize = %d, want previous value 1400", cfg.Responder.ChunkSize)
	}
	if cfg.Prober.DialTimeout != 5*time.Second {
		t.Errorf("DialTimeout = %v, want previous value 5s", cfg.Prober.DialTimeout)
	}
	if cfg.Prober.NoColor {
		t.Error("NoColor should stay false")
	}
}

func TestEnvSource_Prefix(t *testing.T) {
	t.Setenv("OTHER_LOG_LEVEL", "error")

	cfg := &schema.Root{}
	if err := NewEnvSource("SPEEDTEST").LoadInto(cfg); err != nil {
		t.Fatalf("LoadInto() error = %v", err)
	}
	if cfg.Log.Level != "" {
		t.Errorf("Log.Level = %q, variables with another prefix must be ignored", cfg.Log.Level)
	}
}
