package client

import (
	"context"
	"net"
	"strconv"
	"time"

	coreerrors "speedtest-core/internal/core/errors"
)

// State 探测端状态，仅由 Orchestrator 修改
type State int32

const (
	StateIdle State = iota
	StateAwaitingOffer
	StateRunningTest
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingOffer:
		return "awaiting_offer"
	case StateRunningTest:
		return "running_test"
	default:
		return "unknown"
	}
}

// Protocol 传输协议
type Protocol string

const (
	ProtocolTCP Protocol = "tcp"
	ProtocolUDP Protocol = "udp"
)

// Params 一次测试的参数
type Params struct {
	PayloadSize    uint64
	TCPConnections int
	UDPConnections int
}

// Validate 检查参数，失败时返回 INVALID_CONFIG
func (p Params) Validate() error {
	if p.PayloadSize == 0 {
		return coreerrors.New(coreerrors.CodeInvalidConfig, "payload size must be positive")
	}
	if p.TCPConnections < 0 || p.UDPConnections < 0 {
		return coreerrors.Newf(coreerrors.CodeInvalidConfig,
			"connection counts must be non-negative (tcp=%d, udp=%d)", p.TCPConnections, p.UDPConnections)
	}
	if p.TCPConnections+p.UDPConnections == 0 {
		return coreerrors.New(coreerrors.CodeInvalidConfig, "at least one TCP or UDP connection is required")
	}
	return nil
}

// Endpoint 从 Offer 中得到的响应端地址，测试期间只读
type Endpoint struct {
	IP      net.IP
	UDPPort uint16
	TCPPort uint16
}

// TCPAddr 返回 host:port 形式的 TCP 地址
func (e Endpoint) TCPAddr() string {
	return net.JoinHostPort(e.IP.String(), strconv.Itoa(int(e.TCPPort)))
}

// UDPAddr 返回 UDP 请求的目标地址
func (e Endpoint) UDPAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: e.IP, Port: int(e.UDPPort)}
}

func (e Endpoint) String() string {
	return e.IP.String()
}

// TransferResult 单次传输的结果，生成后不再修改
type TransferResult struct {
	RunID        string
	ConnectionID int
	Protocol     Protocol

	Elapsed       time.Duration
	Requested     uint64
	BytesReceived uint64
	Shortfall     uint64 // 仅 TCP

	SegmentsReceived uint64 // 仅 UDP
	TotalSegments    uint64 // 仅 UDP

	ThroughputBps float64
	DeliveryRatio float64 // 仅 UDP，百分比

	Err error
}

// Failed 传输是否以错误结束
func (r TransferResult) Failed() bool {
	return r.Err != nil
}

// ParamSource 测试参数来源
// 返回 CodeInvalidConfig 错误时 Orchestrator 会再次询问，CodeSourceExhausted 结束运行
type ParamSource interface {
	Next(ctx context.Context) (Params, error)
}

// ResultSink 接收已完成的传输结果，实现必须支持并发调用
type ResultSink interface {
	Emit(result TransferResult)
}

// StatusSink 可选接口，ResultSink 同时实现时会收到状态提示行
type StatusSink interface {
	Status(msg string)
}
