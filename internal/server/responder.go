package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"speedtest-core/internal/constants"
	"speedtest-core/internal/core/dispose"
	coreerrors "speedtest-core/internal/core/errors"
	corelog "speedtest-core/internal/core/log"
	"speedtest-core/internal/core/metrics"
	"speedtest-core/internal/protocol/wire"
	"speedtest-core/internal/utils"
	"speedtest-core/internal/utils/sockopt"
)

// Responder 响应端：广播 Offer，接受 TCP 连接与 UDP 请求并发送测速数据
type Responder struct {
	dispose.Dispose

	cfg       Config
	logger    corelog.Logger
	metrics   metrics.Metrics
	transfers *TransferTable

	tcpListener *net.TCPListener
	udpConn     *net.UDPConn
	broadcast   *net.UDPAddr
	startedAt   time.Time

	wg sync.WaitGroup
	mu sync.Mutex
}

// Option 响应端选项
type Option func(*Responder)

// WithLogger 设置日志
func WithLogger(l corelog.Logger) Option {
	return func(r *Responder) { r.logger = l }
}

// WithMetrics 设置指标收集器
func WithMetrics(m metrics.Metrics) Option {
	return func(r *Responder) { r.metrics = m }
}

// NewResponder 创建响应端，Start 之前不绑定任何端口
func NewResponder(cfg Config, opts ...Option) (*Responder, error) {
	cfg = cfg.withDefaults()
	if cfg.ChunkSize > constants.MaxUDPPayload-wire.SegmentHeaderSize {
		return nil, coreerrors.Newf(coreerrors.CodeInvalidConfig, "chunk size %d exceeds one datagram", cfg.ChunkSize)
	}

	transfers, err := NewTransferTable(cfg.RecentTransfers)
	if err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeInvalidConfig, "create transfer table")
	}

	r := &Responder{
		cfg:       cfg,
		logger:    corelog.Default(),
		transfers: transfers,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.metrics = metrics.OrGlobal(r.metrics)
	r.logger = r.logger.WithField(constants.LogFieldComponent, "responder")
	return r, nil
}

// Name 实现 utils.Service
func (r *Responder) Name() string {
	return "responder"
}

// Start 绑定 TCP 与 UDP 端口并启动广播、接受、请求三个循环
func (r *Responder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tcpListener != nil {
		return coreerrors.New(coreerrors.CodeInternal, "responder already started")
	}

	broadcast, err := net.ResolveUDPAddr("udp4",
		net.JoinHostPort(r.cfg.BroadcastAddress, strconv.Itoa(r.cfg.DiscoveryPort)))
	if err != nil {
		return coreerrors.Wrapf(err, coreerrors.CodeInvalidConfig, "resolve broadcast address %s", r.cfg.BroadcastAddress)
	}

	ln, err := net.Listen("tcp4", net.JoinHostPort(r.cfg.Host, strconv.Itoa(r.cfg.TCPPort)))
	if err != nil {
		return coreerrors.Wrap(err, coreerrors.CodeTransportError, "bind tcp listener")
	}

	udpConn, err := sockopt.ListenBroadcastUDP(ctx, r.cfg.Host, r.cfg.UDPPort)
	if err != nil {
		_ = ln.Close()
		return coreerrors.Wrap(err, coreerrors.CodeTransportError, "bind udp socket")
	}

	r.tcpListener = ln.(*net.TCPListener)
	r.udpConn = udpConn
	r.broadcast = broadcast
	r.startedAt = time.Now()
	r.SetCtx(ctx, r.onClose)

	loopCtx := r.Ctx()
	r.spawn("responder-broadcast", func() { r.broadcastLoop(loopCtx) })
	r.spawn("responder-accept", func() { r.acceptLoop(loopCtx) })
	r.spawn("responder-requests", func() { r.requestLoop(loopCtx) })

	r.logger.Infof(constants.MsgServerStarted, LocalIP())
	r.logger.WithFields(map[string]interface{}{
		"tcp_port": r.TCPPort(),
		"udp_port": r.UDPPort(),
	}).Debugf("Broadcasting offers to %s every %s", broadcast, r.cfg.BroadcastInterval)
	return nil
}

// Stop 关闭所有 socket 并等待循环与传输退出
func (r *Responder) Stop(ctx context.Context) error {
	if result := r.Close(); result.HasErrors() {
		r.logger.Warnf("Responder close: %s", result.Error())
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info(constants.MsgServerShutdown)
		return nil
	case <-ctx.Done():
		return coreerrors.Wrap(ctx.Err(), coreerrors.CodeTimeout, "waiting for transfers to finish")
	}
}

func (r *Responder) onClose() error {
	var errs []error
	if r.tcpListener != nil {
		if err := r.tcpListener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if r.udpConn != nil {
		if err := r.udpConn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// spawn 启动受 WaitGroup 管理的 goroutine
func (r *Responder) spawn(name string, fn func()) {
	r.wg.Add(1)
	utils.SafeGo(name, func() {
		defer r.wg.Done()
		fn()
	})
}

// TCPPort 实际监听的 TCP 端口
func (r *Responder) TCPPort() uint16 {
	if r.tcpListener == nil {
		return 0
	}
	return uint16(r.tcpListener.Addr().(*net.TCPAddr).Port)
}

// UDPPort 实际绑定的 UDP 端口
func (r *Responder) UDPPort() uint16 {
	if r.udpConn == nil {
		return 0
	}
	return uint16(r.udpConn.LocalAddr().(*net.UDPAddr).Port)
}

// Offer 当前广播的 Offer
func (r *Responder) Offer() wire.Offer {
	return wire.Offer{UDPPort: r.UDPPort(), TCPPort: r.TCPPort()}
}

// Transfers 最近的传输记录
func (r *Responder) Transfers() []TransferRecord {
	return r.transfers.List()
}

// Status 响应端运行状态
type Status struct {
	TCPPort          uint16           `json:"tcp_port"`
	UDPPort          uint16           `json:"udp_port"`
	BroadcastAddress string           `json:"broadcast_address"`
	ChunkSize        int              `json:"chunk_size"`
	SegmentRate      float64          `json:"segment_rate"`
	StartedAt        time.Time        `json:"started_at"`
	Uptime           string           `json:"uptime"`
	Metrics          metrics.Snapshot `json:"metrics"`
}

// Status 返回当前状态快照
func (r *Responder) Status() Status {
	return Status{
		TCPPort:          r.TCPPort(),
		UDPPort:          r.UDPPort(),
		BroadcastAddress: fmt.Sprintf("%s:%d", r.cfg.BroadcastAddress, r.cfg.DiscoveryPort),
		ChunkSize:        r.cfg.ChunkSize,
		SegmentRate:      r.cfg.SegmentRate,
		StartedAt:        r.startedAt,
		Uptime:           time.Since(r.startedAt).Truncate(time.Second).String(),
		Metrics:          r.metrics.Snapshot(),
	}
}

// acceptLoop TCP 接受循环，每个连接交给独立的发送 goroutine
func (r *Responder) acceptLoop(ctx context.Context) {
	var backoff time.Duration
	for {
		conn, err := r.tcpListener.AcceptTCP()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			_ = r.metrics.IncrementCounter(metrics.AcceptErrors, nil)
			backoff = nextBackoff(backoff)
			r.logger.WithError(err).Warnf("Accept failed, retrying in %s", backoff)
			select {
			case <-time.After(backoff):
				continue
			case <-ctx.Done():
				return
			}
		}
		backoff = 0

		r.spawn("responder-tcp-sender", func() { r.serveTCP(ctx, conn) })
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	if d *= 2; d > time.Second {
		d = time.Second
	}
	return d
}

// requestLoop UDP 请求循环，读超时只用于检查退出
func (r *Responder) requestLoop(ctx context.Context) {
	buf := make([]byte, constants.UDPReceiveBufferSize)
	for {
		if err := r.udpConn.SetReadDeadline(time.Now().Add(constants.DefaultPollInterval)); err != nil {
			if ctx.Err() == nil {
				r.logger.WithError(err).Error("Set UDP read deadline failed")
			}
			return
		}

		n, addr, err := r.udpConn.ReadFromUDP(buf)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if coreerrors.IsTimeout(err) {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			r.logger.WithError(err).Warn("UDP read failed")
			continue
		}

		req, err := wire.DecodeRequest(buf[:n])
		if err != nil {
			_ = r.metrics.IncrementCounter(metrics.RequestsDropped, nil)
			r.logger.WithField(constants.LogFieldRemote, addr.String()).Debugf("Dropped datagram: %v", err)
			continue
		}

		r.spawn("responder-udp-sender", func() { r.serveUDP(ctx, addr, req.PayloadSize) })
	}
}

// LocalIP 返回本机第一个非回环 IPv4 地址，找不到时返回 127.0.0.1
func LocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err == nil {
		for _, addr := range addrs {
			if ipNet, ok := addr.(*net.IPNet); ok && !ipNet.IP.IsLoopback() {
				if ip4 := ipNet.IP.To4(); ip4 != nil {
					return ip4.String()
				}
			}
		}
	}
	return "127.0.0.1"
}
