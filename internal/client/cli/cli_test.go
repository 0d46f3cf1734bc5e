package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"speedtest-core/internal/client"
	coreerrors "speedtest-core/internal/core/errors"
)

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 参数解析
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

func TestParseParams(t *testing.T) {
	tests := []struct {
		name           string
		size, tcp, udp string
		want           client.Params
		wantErr        bool
	}{
		{"valid", "1000000", "2", "3", client.Params{PayloadSize: 1_000_000, TCPConnections: 2, UDPConnections: 3}, false},
		{"whitespace", " 10 ", "\t1", "0 ", client.Params{PayloadSize: 10, TCPConnections: 1}, false},
		{"non-numeric size", "ten", "1", "1", client.Params{}, true},
		{"negative size", "-5", "1", "1", client.Params{}, true},
		{"zero size", "0", "1", "1", client.Params{}, true},
		{"non-numeric tcp", "10", "x", "1", client.Params{}, true},
		{"negative udp", "10", "1", "-1", client.Params{}, true},
		{"no connections", "10", "0", "0", client.Params{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseParams(tt.size, tt.tcp, tt.udp)
			if tt.wantErr {
				assert.True(t, coreerrors.IsCode(err, coreerrors.CodeInvalidConfig), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 参数来源
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

func TestStaticSource_OnlyOnce(t *testing.T) {
	want := client.Params{PayloadSize: 5, UDPConnections: 1}
	s := NewStaticSource(want)

	got, err := s.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = s.Next(context.Background())
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeSourceExhausted))
}

func TestLineSource_ReadsGroupsOfThree(t *testing.T) {
	var prompts bytes.Buffer
	s := NewLineSource(strings.NewReader("100\n1\n2\nabc\n1\n1\n7\n"), &prompts)
	ctx := context.Background()

	p, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, client.Params{PayloadSize: 100, TCPConnections: 1, UDPConnections: 2}, p)
	assert.Equal(t, PromptFileSize+PromptTCPConnections+PromptUDPConnections, prompts.String())

	_, err = s.Next(ctx)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeInvalidConfig), "got %v", err)

	// 只剩一行，输入不完整
	_, err = s.Next(ctx)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeSourceExhausted), "got %v", err)
}

func TestLineSource_Cancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	s := NewLineSource(pr, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := s.Next(ctx)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeCancelled), "got %v", err)
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 输出
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

func TestOutput_ResultLines(t *testing.T) {
	tests := []struct {
		name   string
		result client.TransferResult
		want   string
	}{
		{
			name: "tcp",
			result: client.TransferResult{
				ConnectionID: 1, Protocol: client.ProtocolTCP,
				Elapsed: 1500 * time.Millisecond, ThroughputBps: 5333333.333, BytesReceived: 1_000_000,
			},
			want: "TCP transfer #1 finished, total time: 1.500000 seconds, total speed: 5333333.33 bits/second, bytes received: 1000000\n",
		},
		{
			name: "udp",
			result: client.TransferResult{
				ConnectionID: 3, Protocol: client.ProtocolUDP,
				Elapsed: 2 * time.Second, ThroughputBps: 4e6, DeliveryRatio: 99.5,
			},
			want: "UDP transfer #3 finished, total time: 2.00 seconds, total speed: 4000000.00 bits/second, percentage of packets received successfully: 99.5%\n",
		},
		{
			name: "tcp peer closed early",
			result: client.TransferResult{
				ConnectionID: 2, Protocol: client.ProtocolTCP, Elapsed: time.Second, ThroughputBps: 8, BytesReceived: 1,
				Err: coreerrors.New(coreerrors.CodePeerClosedEarly, "closed"),
			},
			want: "Connection closed unexpectedly (TCP) for transfer #2.\n" +
				"TCP transfer #2 finished, total time: 1.000000 seconds, total speed: 8.00 bits/second, bytes received: 1\n",
		},
		{
			name: "transport error",
			result: client.TransferResult{
				ConnectionID: 4, Protocol: client.ProtocolUDP,
				Err: coreerrors.Wrap(errors.New("refused"), coreerrors.CodeTransportError, "send request"),
			},
			want: "Error in UDP transfer #4: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewOutput(&buf, false).WriteResult(tt.result)
			if strings.HasSuffix(tt.want, "\n") {
				assert.Equal(t, tt.want, buf.String())
				return
			}
			assert.True(t, strings.HasPrefix(buf.String(), tt.want), "got %q", buf.String())
			assert.Contains(t, buf.String(), "refused")
		})
	}
}

func TestOutput_NoColorForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	NewOutput(&buf, false).WriteStatus("Client started, listening for offer requests...")
	assert.Equal(t, "Client started, listening for offer requests...\n", buf.String())
	assert.NotContains(t, buf.String(), "\x1b[")
	assert.False(t, IsTerminal(&buf))
}

func TestOutput_ThroughChannelSink(t *testing.T) {
	var buf bytes.Buffer
	sink := client.NewChannelSink(NewOutput(&buf, true), 0)
	sink.Status("first")
	sink.Emit(client.TransferResult{ConnectionID: 1, Protocol: client.ProtocolUDP})
	require.NoError(t, sink.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "first", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "UDP transfer #1 finished"))
}
