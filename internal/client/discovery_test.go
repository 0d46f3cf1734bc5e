package client

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "speedtest-core/internal/core/errors"
	corelog "speedtest-core/internal/core/log"
	"speedtest-core/internal/core/metrics"
	"speedtest-core/internal/protocol/wire"
)

func listenTestDiscovery(t *testing.T, m metrics.Metrics) *Discovery {
	t.Helper()
	d, err := ListenDiscovery(context.Background(), "127.0.0.1", 0, 50*time.Millisecond, corelog.NewTestLogger(t), m)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func sendTo(t *testing.T, port int, payloads ...[]byte) {
	t.Helper()
	conn, err := net.DialUDP("udp4", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port})
	require.NoError(t, err)
	defer conn.Close()
	for _, p := range payloads {
		_, err := conn.Write(p)
		require.NoError(t, err)
	}
}

func TestDiscovery_AwaitReturnsFirstValidOffer(t *testing.T) {
	t.Parallel()
	m := metrics.NewMemoryMetrics(context.Background())
	defer m.Close()
	d := listenTestDiscovery(t, m)

	sendTo(t, d.Port(),
		[]byte{0xAB, 0xCD},
		wire.EncodeRequest(wire.Request{PayloadSize: 5}),
		wire.EncodeOffer(wire.Offer{UDPPort: 4000, TCPPort: 5000}),
		wire.EncodeOffer(wire.Offer{UDPPort: 4001, TCPPort: 5001}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ep, err := d.Await(ctx)
	require.NoError(t, err)

	assert.True(t, ep.IP.Equal(net.IPv4(127, 0, 0, 1)))
	assert.Equal(t, uint16(4000), ep.UDPPort)
	assert.Equal(t, uint16(5000), ep.TCPPort)
	assert.Equal(t, "127.0.0.1:5000", ep.TCPAddr())

	dropped, _ := m.GetCounter(metrics.MalformedDropped, map[string]string{"channel": "discovery"})
	assert.Equal(t, 2.0, dropped)
	received, _ := m.GetCounter(metrics.OffersReceived, nil)
	assert.Equal(t, 1.0, received)
}

func TestDiscovery_DrainDiscardsQueuedOffers(t *testing.T) {
	t.Parallel()
	d := listenTestDiscovery(t, nil)

	offer := wire.EncodeOffer(wire.Offer{UDPPort: 1, TCPPort: 2})
	sendTo(t, d.Port(), offer, offer, offer)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 3, d.Drain())
	assert.Zero(t, d.Drain())

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err := d.Await(ctx)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeCancelled), "got %v", err)
}

func TestDiscovery_AwaitTimesOutSilently(t *testing.T) {
	t.Parallel()
	d := listenTestDiscovery(t, nil)

	// 多次 50ms 等待超时后仍能收到 Offer
	conn, err := net.DialUDP("udp4", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: d.Port()})
	require.NoError(t, err)
	defer conn.Close()
	time.AfterFunc(200*time.Millisecond, func() {
		_, _ = conn.Write(wire.EncodeOffer(wire.Offer{UDPPort: 7, TCPPort: 8}))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ep, err := d.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint16(8), ep.TCPPort)
}

func TestDiscovery_SharedPort(t *testing.T) {
	t.Parallel()
	first := listenTestDiscovery(t, nil)

	second, err := ListenDiscovery(context.Background(), "127.0.0.1", first.Port(), 0, corelog.NewNopLogger(), nil)
	require.NoError(t, err)
	defer second.Close()
	assert.Equal(t, first.Port(), second.Port())
}
