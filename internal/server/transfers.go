package server

import (
	"net"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Protocol 传输协议
type Protocol string

const (
	ProtocolTCP Protocol = "tcp"
	ProtocolUDP Protocol = "udp"
)

// TransferRecord 响应端的一次传输记录
type TransferRecord struct {
	ID        uint64        `json:"id"`
	Protocol  Protocol      `json:"protocol"`
	Remote    string        `json:"remote"`
	Requested uint64        `json:"requested_bytes"`
	Sent      uint64        `json:"sent_bytes"`
	Segments  uint64        `json:"segments,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// TransferTable 最近传输记录，按请求方地址保留最新一条，超出容量时淘汰最久未更新的
type TransferTable struct {
	cache  *lru.Cache[string, TransferRecord]
	nextID atomic.Uint64
}

// NewTransferTable 创建记录表
func NewTransferTable(size int) (*TransferTable, error) {
	cache, err := lru.New[string, TransferRecord](size)
	if err != nil {
		return nil, err
	}
	return &TransferTable{cache: cache}, nil
}

// Begin 分配一个传输 ID 并登记
func (t *TransferTable) Begin(proto Protocol, remote net.Addr, requested uint64) TransferRecord {
	rec := TransferRecord{
		ID:        t.nextID.Add(1),
		Protocol:  proto,
		Remote:    remote.String(),
		Requested: requested,
		StartedAt: time.Now(),
	}
	t.cache.Add(transferKey(proto, rec.Remote), rec)
	return rec
}

// Finish 更新传输结果
func (t *TransferTable) Finish(rec TransferRecord, err error) {
	rec.Duration = time.Since(rec.StartedAt)
	if err != nil {
		rec.Error = err.Error()
	}
	t.cache.Add(transferKey(rec.Protocol, rec.Remote), rec)
}

// List 按最近更新在前返回全部记录
func (t *TransferTable) List() []TransferRecord {
	keys := t.cache.Keys()
	out := make([]TransferRecord, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		if rec, ok := t.cache.Peek(keys[i]); ok {
			out = append(out, rec)
		}
	}
	return out
}

// Len 当前记录数
func (t *TransferTable) Len() int {
	return t.cache.Len()
}

func transferKey(proto Protocol, remote string) string {
	return string(proto) + "/" + remote
}
