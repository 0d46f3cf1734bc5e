package server

import (
	"time"

	"speedtest-core/internal/config/schema"
	"speedtest-core/internal/constants"
)

// Config 响应端配置
type Config struct {
	Host    string
	TCPPort int // 0 表示随机端口
	UDPPort int // 0 表示随机端口

	DiscoveryPort     int
	BroadcastAddress  string
	BroadcastInterval time.Duration

	ChunkSize   int
	SegmentRate float64 // 每秒分片数，0 表示不限速
	BatchSize   int

	RequestTimeout  time.Duration
	RecentTransfers int
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Host:              "0.0.0.0",
		DiscoveryPort:     constants.DiscoveryPort,
		BroadcastAddress:  constants.DefaultBroadcastAddress,
		BroadcastInterval: constants.DefaultBroadcastInterval,
		ChunkSize:         constants.DefaultChunkSize,
		BatchSize:         constants.DefaultBatchSize,
		RequestTimeout:    constants.DefaultRequestTimeout,
		RecentTransfers:   constants.DefaultRecentTransfers,
	}
}

// ConfigFromSchema 从配置文件结构转换
func ConfigFromSchema(rc schema.ResponderConfig) Config {
	return Config{
		Host:              rc.Host,
		TCPPort:           rc.TCPPort,
		UDPPort:           rc.UDPPort,
		DiscoveryPort:     rc.DiscoveryPort,
		BroadcastAddress:  rc.BroadcastAddress,
		BroadcastInterval: rc.BroadcastInterval,
		ChunkSize:         rc.ChunkSize,
		SegmentRate:       rc.SegmentRate,
		BatchSize:         rc.BatchSize,
		RequestTimeout:    rc.RequestTimeout,
		RecentTransfers:   rc.RecentTransfers,
	}
}

// withDefaults 零值字段使用默认值
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.DiscoveryPort == 0 {
		c.DiscoveryPort = def.DiscoveryPort
	}
	if c.BroadcastAddress == "" {
		c.BroadcastAddress = def.BroadcastAddress
	}
	if c.BroadcastInterval <= 0 {
		c.BroadcastInterval = def.BroadcastInterval
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = def.ChunkSize
	}
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.RecentTransfers <= 0 {
		c.RecentTransfers = def.RecentTransfers
	}
	return c
}
