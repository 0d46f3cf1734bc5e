package client

import (
	"context"
	"net"
	"time"

	"speedtest-core/internal/constants"
	coreerrors "speedtest-core/internal/core/errors"
	corelog "speedtest-core/internal/core/log"
	"speedtest-core/internal/core/metrics"
	"speedtest-core/internal/protocol/wire"
	"speedtest-core/internal/utils/sockopt"
)

const (
	// drainWait 清空积压 Offer 时单次读取的等待上限
	drainWait = time.Millisecond

	// maxDrain 单次清空最多丢弃的数据报数
	maxDrain = 1024
)

// Discovery 发现端口监听器
type Discovery struct {
	conn    *net.UDPConn
	wait    time.Duration
	logger  corelog.Logger
	metrics metrics.Metrics
	buf     []byte
}

// ListenDiscovery 以 SO_REUSEADDR/SO_BROADCAST 绑定发现端口，同一主机上多个探测端可以共存
func ListenDiscovery(ctx context.Context, host string, port int, wait time.Duration, logger corelog.Logger, m metrics.Metrics) (*Discovery, error) {
	conn, err := sockopt.ListenBroadcastUDP(ctx, host, port)
	if err != nil {
		return nil, coreerrors.Wrapf(err, coreerrors.CodeTransportError, "bind discovery port %d", port)
	}
	if wait <= 0 {
		wait = constants.DefaultDiscoveryWait
	}
	if logger == nil {
		logger = corelog.Default()
	}
	return &Discovery{
		conn:    conn,
		wait:    wait,
		logger:  logger.WithField(constants.LogFieldComponent, "discovery"),
		metrics: metrics.OrGlobal(m),
		buf:     make([]byte, constants.UDPReceiveBufferSize),
	}, nil
}

// Port 实际绑定的端口
func (d *Discovery) Port() int {
	return d.conn.LocalAddr().(*net.UDPAddr).Port
}

// Drain 丢弃测试期间积压在接收缓冲区中的数据报，返回丢弃数量
func (d *Discovery) Drain() int {
	drained := 0
	for drained < maxDrain {
		_ = d.conn.SetReadDeadline(time.Now().Add(drainWait))
		if _, _, err := d.conn.ReadFromUDP(d.buf); err != nil {
			break
		}
		drained++
	}
	if drained > 0 {
		d.logger.Debugf("Drained %d queued datagrams", drained)
	}
	return drained
}

// Await 等待第一个有效 Offer
// 每次读取的等待时间有上限，超时后继续等待；格式错误的数据报被丢弃
func (d *Discovery) Await(ctx context.Context) (Endpoint, error) {
	stop := context.AfterFunc(ctx, func() { _ = d.conn.SetReadDeadline(time.Now()) })
	defer stop()

	for {
		if err := ctx.Err(); err != nil {
			return Endpoint{}, coreerrors.Wrap(err, coreerrors.CodeCancelled, "discovery cancelled")
		}
		_ = d.conn.SetReadDeadline(time.Now().Add(d.wait))
		n, addr, err := d.conn.ReadFromUDP(d.buf)
		if err != nil {
			if coreerrors.IsTimeout(err) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			return Endpoint{}, coreerrors.Wrap(err, coreerrors.CodeTransportError, "discovery read")
		}

		offer, err := wire.DecodeOffer(d.buf[:n])
		if err != nil {
			_ = d.metrics.IncrementCounter(metrics.MalformedDropped, map[string]string{"channel": "discovery"})
			d.logger.WithField(constants.LogFieldRemote, addr.String()).Debugf("Dropped datagram: %v", err)
			continue
		}

		_ = d.metrics.IncrementCounter(metrics.OffersReceived, nil)
		ip := make(net.IP, len(addr.IP))
		copy(ip, addr.IP)
		return Endpoint{IP: ip, UDPPort: offer.UDPPort, TCPPort: offer.TCPPort}, nil
	}
}

// Close 关闭发现端口
func (d *Discovery) Close() error {
	return d.conn.Close()
}
