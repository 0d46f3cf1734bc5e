package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferPool_GetPut(t *testing.T) {
	bp := NewBufferPool()

	buf := bp.Get(1024)
	assert.Len(t, buf, 1024)
	buf[0] = 0x7f
	bp.Put(buf[:10])

	again := bp.Get(1024)
	assert.Len(t, again, 1024)

	other := bp.Get(16)
	assert.Len(t, other, 16)
}

func TestBufferPool_PutUnknownSize(t *testing.T) {
	bp := NewBufferPool()
	assert.NotPanics(t, func() {
		bp.Put(make([]byte, 99))
		bp.Put(nil)
	})
	assert.Len(t, bp.Get(99), 99)
}
