package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"speedtest-core/internal/client"
	coreerrors "speedtest-core/internal/core/errors"
)

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 彩色结果输出
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

// Output 把传输结果与状态行写到控制台，实现 client.SinkWriter
// 只应被 client.ChannelSink 的写协程调用
type Output struct {
	w io.Writer

	tcp     *color.Color
	udp     *color.Color
	status  *color.Color
	warning *color.Color
	failure *color.Color
}

// NewOutput 创建输出工具；w 不是终端或 noColor 为 true 时不输出颜色
func NewOutput(w io.Writer, noColor bool) *Output {
	if w == nil {
		w = os.Stdout
	}
	if !noColor && !IsTerminal(w) {
		noColor = true
	}

	o := &Output{
		w:       w,
		tcp:     color.New(color.FgYellow),
		udp:     color.New(color.FgCyan),
		status:  color.New(color.FgGreen, color.Bold),
		warning: color.New(color.FgMagenta),
		failure: color.New(color.FgRed),
	}
	for _, c := range []*color.Color{o.tcp, o.udp, o.status, o.warning, o.failure} {
		if noColor {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
	}
	return o
}

// IsTerminal w 是否为终端
func IsTerminal(w any) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// WriteStatus 输出状态提示行
func (o *Output) WriteStatus(msg string) {
	o.status.Fprintln(o.w, msg)
}

// WriteResult 输出一条传输结果
func (o *Output) WriteResult(r client.TransferResult) {
	switch {
	case r.Err == nil:
	case coreerrors.IsCode(r.Err, coreerrors.CodePeerClosedEarly):
		o.warning.Fprintf(o.w, "Connection closed unexpectedly (TCP) for transfer #%d.\n", r.ConnectionID)
	default:
		o.failure.Fprintf(o.w, "Error in %s transfer #%d: %v\n", protocolName(r.Protocol), r.ConnectionID, r.Err)
		return
	}

	if r.Protocol == client.ProtocolTCP {
		o.tcp.Fprintln(o.w, FormatTCP(r))
		return
	}
	o.udp.Fprintln(o.w, FormatUDP(r))
}

// FormatTCP 格式化 TCP 结果行
func FormatTCP(r client.TransferResult) string {
	return fmt.Sprintf("TCP transfer #%d finished, total time: %.6f seconds, total speed: %.2f bits/second, bytes received: %d",
		r.ConnectionID, r.Elapsed.Seconds(), r.ThroughputBps, r.BytesReceived)
}

// FormatUDP 格式化 UDP 结果行
func FormatUDP(r client.TransferResult) string {
	return fmt.Sprintf("UDP transfer #%d finished, total time: %.2f seconds, total speed: %.2f bits/second, percentage of packets received successfully: %.1f%%",
		r.ConnectionID, r.Elapsed.Seconds(), r.ThroughputBps, r.DeliveryRatio)
}

func protocolName(p client.Protocol) string {
	if p == client.ProtocolTCP {
		return "TCP"
	}
	return "UDP"
}
