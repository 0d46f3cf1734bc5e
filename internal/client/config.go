package client

import (
	"time"

	"speedtest-core/internal/config/schema"
	"speedtest-core/internal/constants"
)

// Config 探测端配置
type Config struct {
	DiscoveryHost string
	DiscoveryPort int
	DiscoveryWait time.Duration

	RecvTimeout  time.Duration
	IdleTimeout  time.Duration
	DialTimeout  time.Duration
	TCPReadChunk int

	Cycles int // 0 表示不限
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		DiscoveryHost: "0.0.0.0",
		DiscoveryPort: constants.DiscoveryPort,
		DiscoveryWait: constants.DefaultDiscoveryWait,
		RecvTimeout:   constants.DefaultRecvTimeout,
		IdleTimeout:   constants.DefaultIdleTimeout,
		DialTimeout:   constants.DefaultDialTimeout,
		TCPReadChunk:  constants.DefaultTCPReadChunk,
	}
}

// ConfigFromSchema 从配置文件结构转换
func ConfigFromSchema(pc schema.ProberConfig) Config {
	return Config{
		DiscoveryHost: "0.0.0.0",
		DiscoveryPort: pc.DiscoveryPort,
		DiscoveryWait: pc.DiscoveryWait,
		RecvTimeout:   pc.RecvTimeout,
		IdleTimeout:   pc.IdleTimeout,
		DialTimeout:   pc.DialTimeout,
		TCPReadChunk:  pc.TCPReadChunk,
		Cycles:        pc.Cycles,
	}
}

// withDefaults 零值字段使用默认值
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.DiscoveryHost == "" {
		c.DiscoveryHost = def.DiscoveryHost
	}
	if c.DiscoveryPort == 0 {
		c.DiscoveryPort = def.DiscoveryPort
	}
	if c.DiscoveryWait <= 0 {
		c.DiscoveryWait = def.DiscoveryWait
	}
	if c.RecvTimeout <= 0 {
		c.RecvTimeout = def.RecvTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = def.IdleTimeout
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = def.DialTimeout
	}
	if c.TCPReadChunk <= 0 {
		c.TCPReadChunk = def.TCPReadChunk
	}
	if c.Cycles < 0 {
		c.Cycles = 0
	}
	return c
}
