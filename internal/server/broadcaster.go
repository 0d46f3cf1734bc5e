package server

import (
	"context"
	"time"

	"speedtest-core/internal/core/metrics"
	"speedtest-core/internal/protocol/wire"
)

// broadcastLoop 每个间隔向广播地址发送一次 Offer，发送失败只记录
func (r *Responder) broadcastLoop(ctx context.Context) {
	offer := wire.EncodeOffer(r.Offer())

	ticker := time.NewTicker(r.cfg.BroadcastInterval)
	defer ticker.Stop()

	for {
		r.sendOffer(ctx, offer)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Responder) sendOffer(ctx context.Context, offer []byte) {
	if _, err := r.udpConn.WriteToUDP(offer, r.broadcast); err != nil {
		if ctx.Err() != nil {
			return
		}
		_ = r.metrics.IncrementCounter(metrics.OffersFailed, nil)
		r.logger.WithError(err).Warnf("Failed to broadcast offer to %s", r.broadcast)
		return
	}
	_ = r.metrics.IncrementCounter(metrics.OffersSent, nil)
}
