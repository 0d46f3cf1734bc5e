package utils

import (
	"sync"
)

// BufferPool 按长度分组复用 []byte
type BufferPool struct {
	pools map[int]*sync.Pool
	mu    sync.RWMutex
}

// NewBufferPool 创建新的内存池
func NewBufferPool() *BufferPool {
	return &BufferPool{
		pools: make(map[int]*sync.Pool),
	}
}

// Get 获取长度为 size 的缓冲区，内容未清零
func (bp *BufferPool) Get(size int) []byte {
	bp.mu.RLock()
	pool, exists := bp.pools[size]
	bp.mu.RUnlock()

	if !exists {
		bp.mu.Lock()
		// 双重检查
		if pool, exists = bp.pools[size]; !exists {
			pool = &sync.Pool{
				New: func() interface{} {
					b := make([]byte, size)
					return &b
				},
			}
			bp.pools[size] = pool
		}
		bp.mu.Unlock()
	}

	return *pool.Get().(*[]byte)
}

// Put 归还缓冲区，长度必须与 Get 时一致，否则丢弃
func (bp *BufferPool) Put(buf []byte) {
	if cap(buf) == 0 {
		return
	}
	buf = buf[:cap(buf)]

	bp.mu.RLock()
	pool, exists := bp.pools[len(buf)]
	bp.mu.RUnlock()

	if exists {
		pool.Put(&buf)
	}
}
