package schema

import "time"

// ResponderConfig contains responder (server side) settings
type ResponderConfig struct {
	// Host is the address the TCP listener and the UDP socket bind to
	Host string `yaml:"host" json:"host"`
	// TCPPort and UDPPort default to 0 (ephemeral); the bound ports are advertised in offers
	TCPPort int `yaml:"tcp_port" json:"tcp_port"`
	UDPPort int `yaml:"udp_port" json:"udp_port"`

	DiscoveryPort     int           `yaml:"discovery_port" json:"discovery_port"`
	BroadcastAddress  string        `yaml:"broadcast_address" json:"broadcast_address"`
	BroadcastInterval time.Duration `yaml:"broadcast_interval" json:"broadcast_interval"`

	ChunkSize   int     `yaml:"chunk_size" json:"chunk_size"`     // UDP segment payload bytes
	SegmentRate float64 `yaml:"segment_rate" json:"segment_rate"` // segments per second, 0 = back-to-back
	BatchSize   int     `yaml:"batch_size" json:"batch_size"`     // segments per WriteBatch call

	RequestTimeout  time.Duration `yaml:"request_timeout" json:"request_timeout"`
	RecentTransfers int           `yaml:"recent_transfers" json:"recent_transfers"`
}
