package metrics

// Metrics 指标收集接口
// 计数器只增不减，Gauge 可设置或增减
type Metrics interface {
	// Counter 操作
	IncrementCounter(name string, labels map[string]string) error
	AddCounter(name string, value float64, labels map[string]string) error
	GetCounter(name string, labels map[string]string) (float64, error)

	// Gauge 操作
	SetGauge(name string, value float64, labels map[string]string) error
	AddGauge(name string, delta float64, labels map[string]string) error
	GetGauge(name string, labels map[string]string) (float64, error)

	// Snapshot 导出当前全部指标
	Snapshot() Snapshot

	// 关闭指标收集器
	Close() error
}

// Snapshot 某一时刻的指标快照，键为带标签的指标名
type Snapshot struct {
	Counters map[string]float64 `json:"counters"`
	Gauges   map[string]float64 `json:"gauges"`
}

// 响应端指标
const (
	OffersSent      = "offers_sent"
	OffersFailed    = "offers_failed"
	RequestsDropped = "requests_malformed_dropped"
	TCPTransfers    = "tcp_transfers_served"
	UDPTransfers    = "udp_transfers_served"
	BytesSent       = "bytes_sent"
	SegmentsSent    = "segments_sent"
	SenderErrors    = "sender_errors"
	ActiveTransfers = "active_transfers"
	AcceptErrors    = "accept_errors"
)

// 探测端指标
const (
	OffersReceived   = "offers_received"
	MalformedDropped = "malformed_dropped"
	SegmentsReceived = "segments_received"
	BytesReceived    = "bytes_received"
	TransfersDone    = "transfers_completed"
	TransfersFailed  = "transfers_failed"
	CyclesCompleted  = "cycles_completed"
)
