package client

import (
	"context"
	"net"
	"time"

	coreerrors "speedtest-core/internal/core/errors"
	"speedtest-core/internal/core/metrics"
	"speedtest-core/internal/protocol/wire"
	"speedtest-core/internal/utils/udpbatch"
)

// 每个 UDP worker 一次最多收取的数据报数
const udpReadBatch = 8

// udp 发送一个 Request，收集分片直到空闲超时
// 空闲超时是正常的结束信号，不是错误
func (w *worker) udp(ctx context.Context, j job) TransferResult {
	logger := w.jobLogger(j, ProtocolUDP)
	res := TransferResult{
		RunID:        j.runID,
		ConnectionID: j.id,
		Protocol:     ProtocolUDP,
		Requested:    j.size,
	}

	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		res.Err = coreerrors.Wrap(err, coreerrors.CodeTransportError, "open udp socket")
		logger.WithError(err).Warn("UDP socket failed")
		return res
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
	defer stop()

	if _, err := conn.WriteToUDP(wire.EncodeRequest(wire.Request{PayloadSize: j.size}), j.endpoint.UDPAddr()); err != nil {
		res.Err = coreerrors.Wrapf(err, coreerrors.CodeTransportError, "send request to %s", j.endpoint.UDPAddr())
		logger.WithError(err).Warn("UDP request failed")
		return res
	}
	sendTime := time.Now()
	lastSegment := sendTime

	ra := NewReassembly(j.size)
	reader := udpbatch.NewBatchReader(conn, udpReadBatch)
	var malformed int

	// 全部槽位收齐时不必等待空闲超时，Elapsed 仍取最后一个分片的到达时间
	for !ra.Complete() {
		if ctx.Err() != nil {
			res.Err = coreerrors.Wrap(ctx.Err(), coreerrors.CodeCancelled, "udp transfer cancelled")
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(w.cfg.RecvTimeout))
		pkt, err := reader.Read()
		if err != nil {
			if !coreerrors.IsTimeout(err) {
				res.Err = coreerrors.Wrap(err, coreerrors.CodeTransportError, "udp read")
				break
			}
			if time.Since(lastSegment) >= w.cfg.IdleTimeout {
				break
			}
			continue
		}
		if pkt == nil {
			continue
		}

		seg, err := wire.DecodeSegment(pkt.Data)
		if err == nil {
			_, err = ra.Add(seg)
		}
		if err != nil {
			malformed++
			continue
		}
		lastSegment = time.Now()
	}

	res.Elapsed = lastSegment.Sub(sendTime)
	res.BytesReceived = ra.Bytes()
	res.SegmentsReceived = ra.Received()
	res.TotalSegments = ra.Total()
	res.ThroughputBps = metrics.Throughput(res.BytesReceived, res.Elapsed)
	res.DeliveryRatio = ra.Ratio()
	if res.Err == nil && !ra.Started() {
		res.Err = coreerrors.New(coreerrors.CodeTimeout, "no segments received before idle timeout")
	}

	if malformed > 0 {
		_ = w.metrics.AddCounter(metrics.MalformedDropped, float64(malformed), map[string]string{"protocol": string(ProtocolUDP)})
		logger.Debugf("Dropped %d malformed datagrams", malformed)
	}
	_ = w.metrics.AddCounter(metrics.SegmentsReceived, float64(res.SegmentsReceived), nil)

	if res.Err != nil {
		logger.WithError(res.Err).Warnf("UDP transfer ended with %d/%d segments", res.SegmentsReceived, res.TotalSegments)
	} else {
		logger.Debugf("UDP transfer received %d/%d segments in %s", res.SegmentsReceived, res.TotalSegments, res.Elapsed)
	}
	return res
}
