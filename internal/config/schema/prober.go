package schema

import "time"

// ProberConfig contains prober (client side) settings
type ProberConfig struct {
	DiscoveryPort int           `yaml:"discovery_port" json:"discovery_port"`
	DiscoveryWait time.Duration `yaml:"discovery_wait" json:"discovery_wait"`
	RecvTimeout   time.Duration `yaml:"recv_timeout" json:"recv_timeout"`
	IdleTimeout   time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	DialTimeout   time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
	TCPReadChunk  int           `yaml:"tcp_read_chunk" json:"tcp_read_chunk"`

	// Cycles limits the number of test cycles, 0 = unlimited
	Cycles int `yaml:"cycles" json:"cycles"`

	// Test parameters used for non-interactive runs; PayloadSize 0 means ask interactively
	PayloadSize    uint64 `yaml:"payload_size" json:"payload_size"`
	TCPConnections int    `yaml:"tcp_connections" json:"tcp_connections"`
	UDPConnections int    `yaml:"udp_connections" json:"udp_connections"`

	NoColor bool `yaml:"no_color" json:"no_color"`
}
