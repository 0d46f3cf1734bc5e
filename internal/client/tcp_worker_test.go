package client

import (
	"bufio"
	"context"
	"math"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "speedtest-core/internal/core/errors"
	corelog "speedtest-core/internal/core/log"
	"speedtest-core/internal/core/metrics"
)

func newTestWorker(t *testing.T, mutate func(*Config)) (*worker, *metrics.MemoryMetrics) {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	m := metrics.NewMemoryMetrics(context.Background())
	t.Cleanup(func() { m.Close() })
	return &worker{cfg: cfg.withDefaults(), logger: corelog.NewTestLogger(t), metrics: m}, m
}

// tcpPeer 读取请求行后写 send 字节再关闭，请求的大小通过 got 返回
func tcpPeer(t *testing.T, send int) (Endpoint, <-chan uint64) {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	got := make(chan uint64, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		line, err := bufio.NewReader(conn).ReadString('\n')
		if err != nil {
			return
		}
		size, _ := strconv.ParseUint(strings.TrimSpace(line), 10, 64)
		got <- size
		_, _ = conn.Write([]byte(strings.Repeat("x", send)))
	}()

	return Endpoint{
		IP:      net.IPv4(127, 0, 0, 1),
		TCPPort: uint16(ln.Addr().(*net.TCPAddr).Port),
	}, got
}

func TestTCPWorker_FullTransfer(t *testing.T) {
	t.Parallel()
	w, m := newTestWorker(t, nil)
	ep, got := tcpPeer(t, 100_000)

	res := w.tcp(context.Background(), job{runID: "run", id: 1, size: 100_000, endpoint: ep})

	require.NoError(t, res.Err)
	assert.Equal(t, uint64(100_000), <-got)
	assert.Equal(t, ProtocolTCP, res.Protocol)
	assert.Equal(t, 1, res.ConnectionID)
	assert.Equal(t, "run", res.RunID)
	assert.Equal(t, uint64(100_000), res.BytesReceived)
	assert.Zero(t, res.Shortfall)
	assert.Greater(t, res.ThroughputBps, 0.0)

	recordResult(m, res)
	done, _ := m.GetCounter(metrics.TransfersDone, map[string]string{"protocol": "tcp"})
	assert.Equal(t, 1.0, done)
}

func TestTCPWorker_PeerClosesEarly(t *testing.T) {
	t.Parallel()
	w, _ := newTestWorker(t, nil)
	ep, _ := tcpPeer(t, 6000)

	res := w.tcp(context.Background(), job{id: 2, size: 10_000, endpoint: ep})

	assert.True(t, coreerrors.IsCode(res.Err, coreerrors.CodePeerClosedEarly), "got %v", res.Err)
	assert.Equal(t, uint64(6000), res.BytesReceived)
	assert.Equal(t, uint64(4000), res.Shortfall)
	assert.False(t, math.IsInf(res.ThroughputBps, 0))
	assert.False(t, math.IsNaN(res.ThroughputBps))
}

func TestTCPWorker_PeerSendsNothing(t *testing.T) {
	t.Parallel()
	w, _ := newTestWorker(t, nil)
	ep, _ := tcpPeer(t, 0)

	res := w.tcp(context.Background(), job{id: 1, size: 1, endpoint: ep})

	// 耗时被钳制，吞吐量始终是有限值
	assert.True(t, coreerrors.IsCode(res.Err, coreerrors.CodePeerClosedEarly))
	assert.Equal(t, uint64(1), res.Shortfall)
	assert.Zero(t, res.ThroughputBps)
	assert.False(t, math.IsNaN(res.ThroughputBps))
}

func TestTCPWorker_DialFailure(t *testing.T) {
	t.Parallel()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	w, _ := newTestWorker(t, func(c *Config) { c.DialTimeout = time.Second })
	res := w.tcp(context.Background(), job{id: 1, size: 10, endpoint: Endpoint{IP: net.IPv4(127, 0, 0, 1), TCPPort: uint16(port)}})

	assert.True(t, coreerrors.IsCode(res.Err, coreerrors.CodeTransportError), "got %v", res.Err)
	assert.Equal(t, uint64(10), res.Shortfall)
	assert.Zero(t, res.BytesReceived)
}

func TestTCPWorker_CancelUnblocksRead(t *testing.T) {
	t.Parallel()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	// 对端只接受连接，从不发送数据
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		time.Sleep(5 * time.Second)
	}()

	w, _ := newTestWorker(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := w.tcp(ctx, job{id: 1, size: 1000, endpoint: Endpoint{IP: net.IPv4(127, 0, 0, 1), TCPPort: uint16(ln.Addr().(*net.TCPAddr).Port)}})

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, coreerrors.IsCode(res.Err, coreerrors.CodeCancelled), "got %v", res.Err)
	assert.Equal(t, uint64(1000), res.Shortfall)
}

func TestThroughput_EpsilonClamp(t *testing.T) {
	assert.Equal(t, 8e6, metrics.Throughput(1, 0))
	assert.False(t, math.IsInf(metrics.Throughput(math.MaxUint32, 0), 0))
	assert.Zero(t, metrics.Throughput(0, 0))
}
