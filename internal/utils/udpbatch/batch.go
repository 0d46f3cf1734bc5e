// Package udpbatch 提供 UDP 批量发送/接收功能
// Linux 上使用 sendmmsg/recvmmsg 减少系统调用，其他平台逐个收发
package udpbatch

import (
	"net"
	"runtime"
	"sync"

	"golang.org/x/net/ipv4"
)

const (
	// DefaultBatchSize 默认批量大小
	DefaultBatchSize = 32

	// MaxPacketSize UDP 最大包大小
	MaxPacketSize = 65535
)

var batchSupported = runtime.GOOS == "linux"

// BatchWriter UDP 批量写入器
// 同一批次内的数据包发往同一个目标地址
type BatchWriter struct {
	conn     *net.UDPConn
	pktConn  *ipv4.PacketConn
	addr     *net.UDPAddr
	messages []ipv4.Message
	buffers  [][]byte
	count    int
	mu       sync.Mutex
}

// NewBatchWriter 创建批量写入器，batchSize < 1 时按 1 处理，packetSize 为单包最大长度
func NewBatchWriter(conn *net.UDPConn, addr *net.UDPAddr, batchSize, packetSize int) *BatchWriter {
	if batchSize < 1 {
		batchSize = 1
	}
	if packetSize < 1 || packetSize > MaxPacketSize {
		packetSize = MaxPacketSize
	}

	bw := &BatchWriter{
		conn:     conn,
		pktConn:  ipv4.NewPacketConn(conn),
		addr:     addr,
		messages: make([]ipv4.Message, batchSize),
		buffers:  make([][]byte, batchSize),
	}
	for i := range bw.buffers {
		bw.buffers[i] = make([]byte, 0, packetSize)
		bw.messages[i].Addr = addr
	}
	return bw
}

// Next 返回下一个空闲槽位的缓冲区（长度为 0），调用者追加数据后交给 Commit
func (bw *BatchWriter) Next() []byte {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return bw.buffers[bw.count][:0]
}

// Commit 提交 Next 返回的缓冲区，批次满时自动刷新
func (bw *BatchWriter) Commit(pkt []byte) error {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	bw.buffers[bw.count] = pkt
	bw.messages[bw.count].Buffers = [][]byte{pkt}
	bw.count++

	if bw.count >= len(bw.messages) {
		return bw.flushLocked()
	}
	return nil
}

// add 复制 data 到批量缓冲
func (bw *BatchWriter) add(data []byte) error {
	return bw.Commit(append(bw.Next(), data...))
}

// Flush 刷新所有待发送的数据包
func (bw *BatchWriter) Flush() error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return bw.flushLocked()
}

// flushLocked 内部刷新（需要持有锁）
// 返回时批次已清空，出错时未发送的包被丢弃
func (bw *BatchWriter) flushLocked() error {
	if bw.count == 0 {
		return nil
	}
	pending := bw.messages[:bw.count]
	bw.count = 0

	if batchSupported && len(pending) > 1 {
		for len(pending) > 0 {
			n, err := bw.pktConn.WriteBatch(pending, 0)
			if err != nil {
				return err
			}
			pending = pending[n:]
		}
		return nil
	}

	for i := range pending {
		if _, err := bw.conn.WriteToUDP(pending[i].Buffers[0], bw.addr); err != nil {
			return err
		}
	}
	return nil
}

// buffered 返回当前缓冲的包数量
func (bw *BatchWriter) buffered() int {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return bw.count
}

// BatchReader UDP 批量读取器
// Read 返回的数据引用内部缓冲区，在下一次 Read 前有效
type BatchReader struct {
	conn     *net.UDPConn
	pktConn  *ipv4.PacketConn
	messages []ipv4.Message
	buffers  [][]byte
	results  []ReadResult
	readIdx  int
	readEnd  int
	mu       sync.Mutex
}

// ReadResult 单个包的读取结果
type ReadResult struct {
	Data []byte
	Addr net.Addr
}

// NewBatchReader 创建批量读取器
func NewBatchReader(conn *net.UDPConn, batchSize int) *BatchReader {
	if batchSize < 1 {
		batchSize = 1
	}
	br := &BatchReader{
		conn:     conn,
		pktConn:  ipv4.NewPacketConn(conn),
		messages: make([]ipv4.Message, batchSize),
		buffers:  make([][]byte, batchSize),
		results:  make([]ReadResult, batchSize),
	}
	for i := range br.buffers {
		br.buffers[i] = make([]byte, MaxPacketSize)
		br.messages[i].Buffers = [][]byte{br.buffers[i]}
	}
	return br
}

// Read 读取一个数据包，内部缓冲为空时批量读取
// 读超时沿用 conn 上设置的 deadline
func (br *BatchReader) Read() (*ReadResult, error) {
	br.mu.Lock()
	defer br.mu.Unlock()

	if br.readIdx < br.readEnd {
		result := &br.results[br.readIdx]
		br.readIdx++
		return result, nil
	}
	br.readIdx, br.readEnd = 0, 0

	if !batchSupported || len(br.messages) == 1 {
		n, addr, err := br.conn.ReadFromUDP(br.buffers[0])
		if err != nil {
			return nil, err
		}
		br.results[0] = ReadResult{Data: br.buffers[0][:n], Addr: addr}
		br.readIdx, br.readEnd = 1, 1
		return &br.results[0], nil
	}

	n, err := br.pktConn.ReadBatch(br.messages, 0)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		msg := &br.messages[i]
		br.results[i] = ReadResult{Data: br.buffers[i][:msg.N], Addr: msg.Addr}
	}
	if n == 0 {
		return nil, nil
	}
	br.readIdx, br.readEnd = 1, n
	return &br.results[0], nil
}
