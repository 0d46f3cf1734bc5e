package client

import (
	coreerrors "speedtest-core/internal/core/errors"
	"speedtest-core/internal/core/metrics"
	"speedtest-core/internal/protocol/wire"
)

// Reassembly 一次 UDP 传输的分片接收状态
//
// 槽位数组在第一个有效分片到达时按其 TotalSegments 分配；
// 之后 TotalSegments 不一致的分片被丢弃，重复分片不重复计数。
type Reassembly struct {
	requested uint64

	total   uint64
	present []uint64 // 位图，按 SegmentIndex 置位
	filled  uint64
	bytes   uint64
}

// NewReassembly 创建接收状态，requested 为请求的负载字节数
func NewReassembly(requested uint64) *Reassembly {
	return &Reassembly{requested: requested}
}

// Add 记录一个分片
// 返回 true 表示占用了新槽位；重复分片返回 false, nil；不合法分片返回 MALFORMED_MESSAGE
func (r *Reassembly) Add(seg wire.Segment) (bool, error) {
	if seg.TotalSegments == 0 || seg.TotalSegments > r.requested {
		return false, coreerrors.Newf(coreerrors.CodeMalformedMessage,
			"segment total %d impossible for %d requested bytes", seg.TotalSegments, r.requested)
	}
	if seg.SegmentIndex >= seg.TotalSegments {
		return false, coreerrors.Newf(coreerrors.CodeMalformedMessage,
			"segment index %d out of range (total %d)", seg.SegmentIndex, seg.TotalSegments)
	}

	if r.present == nil {
		r.total = seg.TotalSegments
		r.present = make([]uint64, (r.total+63)/64)
	} else if seg.TotalSegments != r.total {
		return false, coreerrors.Newf(coreerrors.CodeMalformedMessage,
			"segment total %d disagrees with first observed %d", seg.TotalSegments, r.total)
	}

	word, bit := seg.SegmentIndex/64, uint64(1)<<(seg.SegmentIndex%64)
	if r.present[word]&bit != 0 {
		return false, nil
	}
	r.present[word] |= bit
	r.filled++
	r.bytes += uint64(len(seg.Payload))
	return true, nil
}

// has 第 index 个分片是否已收到
func (r *Reassembly) has(index uint64) bool {
	if index >= r.total {
		return false
	}
	return r.present[index/64]&(uint64(1)<<(index%64)) != 0
}

// Started 是否已收到过有效分片
func (r *Reassembly) Started() bool {
	return r.present != nil
}

// Total 第一个有效分片声明的分片总数，未开始时为 0
func (r *Reassembly) Total() uint64 {
	return r.total
}

// Received 已占用的槽位数
func (r *Reassembly) Received() uint64 {
	return r.filled
}

// Bytes 已收到的负载字节数，按槽位去重：重复到达的分片不再计入
func (r *Reassembly) Bytes() uint64 {
	return r.bytes
}

// Complete 所有槽位是否都已收到
func (r *Reassembly) Complete() bool {
	return r.Started() && r.filled == r.total
}

// Ratio 送达率百分比，未收到任何分片时为 0
func (r *Reassembly) Ratio() float64 {
	return metrics.DeliveryRatio(r.filled, r.total)
}
