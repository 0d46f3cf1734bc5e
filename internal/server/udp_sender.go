package server

import (
	"context"
	"net"

	"golang.org/x/time/rate"

	"speedtest-core/internal/constants"
	coreerrors "speedtest-core/internal/core/errors"
	"speedtest-core/internal/core/metrics"
	"speedtest-core/internal/protocol/wire"
	"speedtest-core/internal/utils/udpbatch"
)

// serveUDP 把 size 字节切成 ceil(size/chunk) 个分片按序号顺序发给请求方，没有结束标记
func (r *Responder) serveUDP(ctx context.Context, addr *net.UDPAddr, size uint64) {
	logger := r.logger.WithField(constants.LogFieldRemote, addr.String()).
		WithField(constants.LogFieldProtocol, ProtocolUDP)

	_ = r.metrics.AddGauge(metrics.ActiveTransfers, 1, nil)
	defer func() { _ = r.metrics.AddGauge(metrics.ActiveTransfers, -1, nil) }()

	rec := r.transfers.Begin(ProtocolUDP, addr, size)
	sender := newSegmentSender(r.udpConn, addr, r.cfg)
	segments, sent, err := sender.send(ctx, size)
	rec.Segments, rec.Sent = segments, sent

	_ = r.metrics.AddCounter(metrics.SegmentsSent, float64(segments), nil)
	_ = r.metrics.AddCounter(metrics.BytesSent, float64(sent), nil)

	if err != nil && ctx.Err() == nil {
		_ = r.metrics.IncrementCounter(metrics.SenderErrors, map[string]string{"protocol": "udp"})
		logger.WithError(err).Warn("UDP transfer aborted")
	} else {
		_ = r.metrics.IncrementCounter(metrics.UDPTransfers, nil)
		logger.WithFields(map[string]interface{}{
			constants.LogFieldSize: size,
			"segments":             segments,
		}).Debug("UDP transfer served")
	}
	r.transfers.Finish(rec, err)
}

// segmentSender 生成并批量发送一次传输的全部分片
type segmentSender struct {
	writer    *udpbatch.BatchWriter
	limiter   *rate.Limiter
	chunkSize int
	batchSize int
}

func newSegmentSender(conn *net.UDPConn, addr *net.UDPAddr, cfg Config) *segmentSender {
	s := &segmentSender{
		writer:    udpbatch.NewBatchWriter(conn, addr, cfg.BatchSize, wire.SegmentHeaderSize+cfg.ChunkSize),
		chunkSize: cfg.ChunkSize,
		batchSize: cfg.BatchSize,
	}
	if cfg.SegmentRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.SegmentRate), cfg.BatchSize)
	}
	return s
}

// send 返回已发送的分片数与负载字节数
func (s *segmentSender) send(ctx context.Context, size uint64) (uint64, uint64, error) {
	total := wire.SegmentCount(size, s.chunkSize)

	var segments, sent uint64
	for segments < total {
		if err := ctx.Err(); err != nil {
			return segments, sent, coreerrors.Wrap(err, coreerrors.CodeCancelled, "udp transfer cancelled")
		}

		n := total - segments
		if n > uint64(s.batchSize) {
			n = uint64(s.batchSize)
		}
		if s.limiter != nil {
			if err := s.limiter.WaitN(ctx, int(n)); err != nil {
				return segments, sent, coreerrors.Wrap(err, coreerrors.CodeCancelled, "udp pacing interrupted")
			}
		}

		var batchBytes uint64
		for i := segments; i < segments+n; i++ {
			length := wire.SegmentLength(size, s.chunkSize, i)
			pkt := wire.AppendSegmentHeader(s.writer.Next(), total, i)
			pkt = append(pkt, filler[:length]...)
			if err := s.writer.Commit(pkt); err != nil {
				return segments, sent, coreerrors.Wrap(err, coreerrors.CodeTransportError, "send segment batch")
			}
			batchBytes += uint64(length)
		}
		if err := s.writer.Flush(); err != nil {
			return segments, sent, coreerrors.Wrap(err, coreerrors.CodeTransportError, "send segment batch")
		}
		segments += n
		sent += batchBytes
	}
	return segments, sent, nil
}
