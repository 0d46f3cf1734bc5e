package source

import (
	"speedtest-core/internal/config/schema"
	"speedtest-core/internal/constants"
)

// DefaultSource provides default configuration values
type DefaultSource struct {
	appType string
}

// NewDefaultSource creates a new DefaultSource
func NewDefaultSource() *DefaultSource {
	return &DefaultSource{}
}

// NewAppDefaultSource creates a DefaultSource with per-application defaults.
// The client writes results to the console, so its log goes to a file by default.
func NewAppDefaultSource(appType string) *DefaultSource {
	return &DefaultSource{appType: appType}
}

// Name returns the source name
func (s *DefaultSource) Name() string {
	return "defaults"
}

// Priority returns the source priority
func (s *DefaultSource) Priority() int {
	return PriorityDefaults
}

// LoadInto loads default values into the configuration
func (s *DefaultSource) LoadInto(cfg *schema.Root) error {
	// Responder defaults
	cfg.Responder.Host = "0.0.0.0"
	cfg.Responder.TCPPort = 0
	cfg.Responder.UDPPort = 0
	cfg.Responder.DiscoveryPort = constants.DiscoveryPort
	cfg.Responder.BroadcastAddress = constants.DefaultBroadcastAddress
	cfg.Responder.BroadcastInterval = constants.DefaultBroadcastInterval
	cfg.Responder.ChunkSize = constants.DefaultChunkSize
	cfg.Responder.SegmentRate = 0
	cfg.Responder.BatchSize = constants.DefaultBatchSize
	cfg.Responder.RequestTimeout = constants.DefaultRequestTimeout
	cfg.Responder.RecentTransfers = constants.DefaultRecentTransfers

	// Prober defaults
	cfg.Prober.DiscoveryPort = constants.DiscoveryPort
	cfg.Prober.DiscoveryWait = constants.DefaultDiscoveryWait
	cfg.Prober.RecvTimeout = constants.DefaultRecvTimeout
	cfg.Prober.IdleTimeout = constants.DefaultIdleTimeout
	cfg.Prober.DialTimeout = constants.DefaultDialTimeout
	cfg.Prober.TCPReadChunk = constants.DefaultTCPReadChunk
	cfg.Prober.Cycles = 0
	cfg.Prober.TCPConnections = 1
	cfg.Prober.UDPConnections = 1

	// Management defaults
	cfg.Management.Enabled = false
	cfg.Management.Listen = constants.DefaultManagementListen

	// Log defaults
	cfg.Log.Level = schema.LogLevelInfo
	cfg.Log.Format = schema.LogFormatText
	cfg.Log.Output = schema.LogOutputStderr
	if s.appType == "client" {
		cfg.Log.Output = schema.LogOutputFile
	}

	return nil
}

// GetDefaultConfig returns a configuration populated with defaults only
func GetDefaultConfig() *schema.Root {
	cfg := &schema.Root{}
	_ = NewDefaultSource().LoadInto(cfg)
	return cfg
}
