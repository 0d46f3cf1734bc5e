package client

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "speedtest-core/internal/core/errors"
	"speedtest-core/internal/protocol/wire"
)

func segmentOf(size uint64, chunk int, index uint64) wire.Segment {
	return wire.Segment{
		TotalSegments: wire.SegmentCount(size, chunk),
		SegmentIndex:  index,
		Payload:       make([]byte, wire.SegmentLength(size, chunk, index)),
	}
}

func TestReassembly_ShuffledDuplicatedAndDropped(t *testing.T) {
	const size, chunk = 250_000, 1400
	total := wire.SegmentCount(size, chunk)
	rng := rand.New(rand.NewPCG(7, 11))

	var segs []wire.Segment
	dropped := make(map[uint64]bool)
	var wantBytes uint64
	for i := uint64(0); i < total; i++ {
		if rng.IntN(5) == 0 {
			dropped[i] = true
			continue
		}
		seg := segmentOf(size, chunk, i)
		wantBytes += uint64(len(seg.Payload))
		segs = append(segs, seg)
		if rng.IntN(3) == 0 {
			segs = append(segs, seg)
		}
	}
	rng.Shuffle(len(segs), func(a, b int) { segs[a], segs[b] = segs[b], segs[a] })

	ra := NewReassembly(size)
	for _, seg := range segs {
		_, err := ra.Add(seg)
		require.NoError(t, err)
	}

	want := total - uint64(len(dropped))
	assert.Equal(t, total, ra.Total())
	assert.Equal(t, want, ra.Received())
	assert.Equal(t, wantBytes, ra.Bytes())
	assert.InDelta(t, float64(want)/float64(total)*100, ra.Ratio(), 1e-9)
	assert.Equal(t, len(dropped) == 0, ra.Complete())
	for i := uint64(0); i < total; i++ {
		assert.Equal(t, !dropped[i], ra.has(i), "segment %d", i)
	}
}

func TestReassembly_DuplicateIsIdempotent(t *testing.T) {
	ra := NewReassembly(1000)
	seg := segmentOf(1000, 100, 3)

	fresh, err := ra.Add(seg)
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = ra.Add(seg)
	require.NoError(t, err)
	assert.False(t, fresh)
	assert.Equal(t, uint64(1), ra.Received())
	assert.Equal(t, uint64(100), ra.Bytes())
}

func TestReassembly_RejectsInconsistentSegments(t *testing.T) {
	tests := []struct {
		name string
		seg  wire.Segment
	}{
		{"zero total", wire.Segment{TotalSegments: 0, SegmentIndex: 0}},
		{"total exceeds requested bytes", wire.Segment{TotalSegments: 1001, SegmentIndex: 0}},
		{"index out of range", wire.Segment{TotalSegments: 10, SegmentIndex: 10}},
		{"disagrees with first total", wire.Segment{TotalSegments: 9, SegmentIndex: 1}},
	}

	ra := NewReassembly(1000)
	_, err := ra.Add(wire.Segment{TotalSegments: 10, SegmentIndex: 0, Payload: make([]byte, 100)})
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fresh, err := ra.Add(tt.seg)
			assert.False(t, fresh)
			assert.True(t, coreerrors.IsCode(err, coreerrors.CodeMalformedMessage), "got %v", err)
		})
	}
	assert.Equal(t, uint64(1), ra.Received())
	assert.Equal(t, uint64(10), ra.Total())
}

func TestReassembly_NoSegments(t *testing.T) {
	ra := NewReassembly(1000)
	assert.False(t, ra.Started())
	assert.False(t, ra.Complete())
	assert.Zero(t, ra.Total())
	assert.Zero(t, ra.Ratio())
	assert.False(t, ra.has(0))
}

func TestReassembly_FirstSegmentAllocates(t *testing.T) {
	// 第一个分片可以是任意 index
	ra := NewReassembly(130)
	_, err := ra.Add(wire.Segment{TotalSegments: 130, SegmentIndex: 129, Payload: []byte{'x'}})
	require.NoError(t, err)
	assert.True(t, ra.Started())
	assert.True(t, ra.has(129))
	assert.False(t, ra.has(128))
	assert.False(t, ra.has(64))
}
