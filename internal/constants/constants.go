package constants

import "time"

// 协议相关常量
const (
	// MagicCookie 所有报文的魔数
	MagicCookie uint32 = 0xABCDDCBA

	// DiscoveryPort 发现广播使用的固定端口
	DiscoveryPort = 13117

	// DefaultBroadcastAddress 默认广播地址（受限广播）
	DefaultBroadcastAddress = "255.255.255.255"
)

// 发送端相关常量
const (
	// DefaultChunkSize UDP 分片负载大小，保持在常见 MTU 以内避免 IP 分片
	DefaultChunkSize = 1400

	// MaxUDPPayload IPv4 下单个 UDP 数据报的最大负载
	MaxUDPPayload = 65507

	// DefaultBatchSize 每批发送的分片数量
	DefaultBatchSize = 32

	// TCPWriteBufferSize TCP 填充数据单次写入大小
	TCPWriteBufferSize = 64 * 1024

	// MaxRequestLineLength TCP 请求行最大长度（含换行）
	MaxRequestLineLength = 32

	// FillerByte 填充数据使用的字节
	FillerByte = 'x'

	// DefaultRecentTransfers 响应端保留的最近传输记录数
	DefaultRecentTransfers = 256
)

// 客户端相关常量
const (
	// DefaultTCPReadChunk TCP 单次读取上限
	DefaultTCPReadChunk = 8192

	// UDPReceiveBufferSize UDP 接收缓冲区大小
	UDPReceiveBufferSize = 65535

	// MinElapsed 吞吐量计算时的最小耗时，避免除零
	MinElapsed = time.Microsecond

	// DefaultResultBacklog 结果通道容量
	DefaultResultBacklog = 64
)

// 时间相关常量
const (
	DefaultBroadcastInterval = 1 * time.Second
	DefaultDiscoveryWait     = 1 * time.Second
	DefaultRecvTimeout       = 1 * time.Second
	DefaultIdleTimeout       = 1 * time.Second
	DefaultDialTimeout       = 5 * time.Second
	DefaultRequestTimeout    = 10 * time.Second
	DefaultPollInterval      = 1 * time.Second
)

// 环境变量前缀
const EnvPrefix = "SPEEDTEST"

// 管理接口相关常量
const (
	// DefaultManagementListen 管理接口默认监听地址，仅本机可访问
	DefaultManagementListen = "127.0.0.1:9117"

	// ManagementShutdownTimeout 管理接口优雅关闭超时
	ManagementShutdownTimeout = 5 * time.Second
)
