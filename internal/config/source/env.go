package source

import (
	"os"
	"strconv"
	"time"

	"speedtest-core/internal/config/schema"
)

// EnvSource loads configuration from environment variables
type EnvSource struct {
	prefix string
}

// NewEnvSource creates a new EnvSource with the specified prefix
func NewEnvSource(prefix string) *EnvSource {
	return &EnvSource{
		prefix: prefix,
	}
}

// Name returns the source name
func (s *EnvSource) Name() string {
	return "env"
}

// Priority returns the source priority
func (s *EnvSource) Priority() int {
	return PriorityEnv
}

// LoadInto loads environment variables into the config structure
func (s *EnvSource) LoadInto(cfg *schema.Root) error {
	// Responder
	s.loadString("RESPONDER_HOST", &cfg.Responder.Host)
	s.loadInt("RESPONDER_TCP_PORT", &cfg.Responder.TCPPort)
	s.loadInt("RESPONDER_UDP_PORT", &cfg.Responder.UDPPort)
	s.loadInt("RESPONDER_DISCOVERY_PORT", &cfg.Responder.DiscoveryPort)
	s.loadString("RESPONDER_BROADCAST_ADDRESS", &cfg.Responder.BroadcastAddress)
	s.loadDuration("RESPONDER_BROADCAST_INTERVAL", &cfg.Responder.BroadcastInterval)
	s.loadInt("RESPONDER_CHUNK_SIZE", &cfg.Responder.ChunkSize)
	s.loadFloat("RESPONDER_SEGMENT_RATE", &cfg.Responder.SegmentRate)
	s.loadInt("RESPONDER_BATCH_SIZE", &cfg.Responder.BatchSize)
	s.loadDuration("RESPONDER_REQUEST_TIMEOUT", &cfg.Responder.RequestTimeout)
	s.loadInt("RESPONDER_RECENT_TRANSFERS", &cfg.Responder.RecentTransfers)

	// Prober
	s.loadInt("PROBER_DISCOVERY_PORT", &cfg.Prober.DiscoveryPort)
	s.loadDuration("PROBER_DISCOVERY_WAIT", &cfg.Prober.DiscoveryWait)
	s.loadDuration("PROBER_RECV_TIMEOUT", &cfg.Prober.RecvTimeout)
	s.loadDuration("PROBER_IDLE_TIMEOUT", &cfg.Prober.IdleTimeout)
	s.loadDuration("PROBER_DIAL_TIMEOUT", &cfg.Prober.DialTimeout)
	s.loadInt("PROBER_TCP_READ_CHUNK", &cfg.Prober.TCPReadChunk)
	s.loadInt("PROBER_CYCLES", &cfg.Prober.Cycles)
	s.loadUint64("PROBER_PAYLOAD_SIZE", &cfg.Prober.PayloadSize)
	s.loadInt("PROBER_TCP_CONNECTIONS", &cfg.Prober.TCPConnections)
	s.loadInt("PROBER_UDP_CONNECTIONS", &cfg.Prober.UDPConnections)
	s.loadBool("PROBER_NO_COLOR", &cfg.Prober.NoColor)

	// Management
	s.loadBool("MANAGEMENT_ENABLED", &cfg.Management.Enabled)
	s.loadString("MANAGEMENT_LISTEN", &cfg.Management.Listen)

	// Log
	s.loadString("LOG_LEVEL", &cfg.Log.Level)
	s.loadString("LOG_FORMAT", &cfg.Log.Format)
	s.loadString("LOG_OUTPUT", &cfg.Log.Output)
	s.loadString("LOG_FILE", &cfg.Log.File)

	return nil
}

// getEnv gets environment variable with the configured prefix
func (s *EnvSource) getEnv(key string) (string, bool) {
	prefixedKey := s.prefix + "_" + key
	if v := os.Getenv(prefixedKey); v != "" {
		return v, true
	}
	return "", false
}

func (s *EnvSource) loadString(key string, target *string) {
	if v, ok := s.getEnv(key); ok {
		*target = v
	}
}

func (s *EnvSource) loadBool(key string, target *bool) {
	if v, ok := s.getEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}

func (s *EnvSource) loadInt(key string, target *int) {
	if v, ok := s.getEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			*target = i
		}
	}
}

func (s *EnvSource) loadUint64(key string, target *uint64) {
	if v, ok := s.getEnv(key); ok {
		if i, err := strconv.ParseUint(v, 10, 64); err == nil {
			*target = i
		}
	}
}

func (s *EnvSource) loadFloat(key string, target *float64) {
	if v, ok := s.getEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
		}
	}
}

func (s *EnvSource) loadDuration(key string, target *time.Duration) {
	if v, ok := s.getEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*target = d
		}
	}
}
