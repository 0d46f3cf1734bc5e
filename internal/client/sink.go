package client

import (
	"sync"

	"speedtest-core/internal/constants"
	"speedtest-core/internal/utils"
)

// SinkWriter 结果的最终输出方，只会在 ChannelSink 的写协程中被调用
type SinkWriter interface {
	WriteResult(result TransferResult)
	WriteStatus(msg string)
}

type sinkEvent struct {
	result *TransferResult
	status string
}

// ChannelSink 有界通道 + 单写协程，保证并发 worker 的输出不会交错
type ChannelSink struct {
	events chan sinkEvent
	writer SinkWriter
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewChannelSink 创建并启动写协程，backlog <= 0 时使用默认容量
func NewChannelSink(w SinkWriter, backlog int) *ChannelSink {
	if backlog <= 0 {
		backlog = constants.DefaultResultBacklog
	}
	s := &ChannelSink{
		events: make(chan sinkEvent, backlog),
		writer: w,
		done:   make(chan struct{}),
	}
	utils.SafeGo("result-sink", s.run)
	return s
}

func (s *ChannelSink) run() {
	defer close(s.done)
	for ev := range s.events {
		if ev.result != nil {
			s.writer.WriteResult(*ev.result)
			continue
		}
		s.writer.WriteStatus(ev.status)
	}
}

// Emit 实现 ResultSink，通道满时阻塞
func (s *ChannelSink) Emit(result TransferResult) {
	s.send(sinkEvent{result: &result})
}

// Status 实现 StatusSink
func (s *ChannelSink) Status(msg string) {
	s.send(sinkEvent{status: msg})
}

func (s *ChannelSink) send(ev sinkEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	s.events <- ev
}

// Close 停止接收新事件，等待已排队的事件全部写出
// 重复调用安全，关闭后的 Emit 被忽略
func (s *ChannelSink) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	s.mu.Unlock()
	<-s.done
	return nil
}
