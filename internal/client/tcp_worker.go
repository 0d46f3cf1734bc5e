package client

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"time"

	"speedtest-core/internal/constants"
	coreerrors "speedtest-core/internal/core/errors"
	corelog "speedtest-core/internal/core/log"
	"speedtest-core/internal/core/metrics"
	"speedtest-core/internal/utils"
)

// readBuffers TCP 读缓冲区，多个 worker 与多轮测试共用
var readBuffers = utils.NewBufferPool()

// job 一个 worker 的输入，Endpoint 是发现阶段得到的只读副本
type job struct {
	runID    string
	id       int
	size     uint64
	endpoint Endpoint
}

// worker 执行单个 TCP/UDP 传输，自身无共享状态
type worker struct {
	cfg     Config
	logger  corelog.Logger
	metrics metrics.Metrics
}

func (w *worker) jobLogger(j job, proto Protocol) corelog.Logger {
	return w.logger.WithFields(map[string]interface{}{
		constants.LogFieldRunID:        j.runID,
		constants.LogFieldConnectionID: j.id,
		constants.LogFieldProtocol:     string(proto),
		constants.LogFieldRemote:       j.endpoint.String(),
	})
}

// recordResult 根据结果更新探测端计数器
func recordResult(m metrics.Metrics, res TransferResult) {
	labels := map[string]string{"protocol": string(res.Protocol)}
	if res.Failed() {
		_ = m.IncrementCounter(metrics.TransfersFailed, labels)
	} else {
		_ = m.IncrementCounter(metrics.TransfersDone, labels)
	}
	_ = m.AddCounter(metrics.BytesReceived, float64(res.BytesReceived), labels)
}

// tcp 建连，发送 "<size>\n"，读满 size 字节或直到对端关闭
func (w *worker) tcp(ctx context.Context, j job) TransferResult {
	logger := w.jobLogger(j, ProtocolTCP)
	res := TransferResult{
		RunID:        j.runID,
		ConnectionID: j.id,
		Protocol:     ProtocolTCP,
		Requested:    j.size,
	}

	dialer := net.Dialer{Timeout: w.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp4", j.endpoint.TCPAddr())
	if err != nil {
		res.Err = coreerrors.Wrapf(err, coreerrors.CodeTransportError, "dial %s", j.endpoint.TCPAddr())
		res.Shortfall = j.size
		logger.WithError(err).Warn("TCP dial failed")
		return res
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	line := append(strconv.AppendUint(nil, j.size, 10), '\n')
	if _, err := conn.Write(line); err != nil {
		res.Err = coreerrors.Wrap(err, coreerrors.CodeTransportError, "send size line")
		res.Shortfall = j.size
		logger.WithError(err).Warn("TCP request failed")
		return res
	}

	buf := readBuffers.Get(w.cfg.TCPReadChunk)
	defer readBuffers.Put(buf)
	start := time.Now()
	var received uint64
	for received < j.size {
		n, err := conn.Read(buf[:min(uint64(len(buf)), j.size-received)])
		received += uint64(n)
		if err == nil {
			continue
		}
		switch {
		case errors.Is(err, io.EOF):
			res.Err = coreerrors.Newf(coreerrors.CodePeerClosedEarly,
				"connection closed after %d of %d bytes", received, j.size)
		case ctx.Err() != nil:
			res.Err = coreerrors.Wrap(ctx.Err(), coreerrors.CodeCancelled, "tcp transfer cancelled")
		default:
			res.Err = coreerrors.Wrap(err, coreerrors.CodeTransportError, "tcp read")
		}
		break
	}
	res.Elapsed = time.Since(start)

	res.BytesReceived = received
	res.Shortfall = j.size - received
	res.ThroughputBps = metrics.Throughput(received, res.Elapsed)

	if res.Err != nil {
		logger.WithError(res.Err).Warnf("TCP transfer ended with %d bytes missing", res.Shortfall)
	} else {
		logger.Debugf("TCP transfer received %d bytes in %s", received, res.Elapsed)
	}
	return res
}
