package metrics

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"speedtest-core/internal/core/dispose"
)

var _ dispose.Disposable = (*MemoryMetrics)(nil)

// MemoryMetrics 内存指标实现，进程退出即丢失
type MemoryMetrics struct {
	life *dispose.Dispose

	counters map[string]*int64
	gauges   map[string]float64
	mu       sync.RWMutex
}

// NewMemoryMetrics 创建内存指标收集器
func NewMemoryMetrics(parentCtx context.Context) *MemoryMetrics {
	return &MemoryMetrics{
		life:     dispose.NewDispose(parentCtx, nil),
		counters: make(map[string]*int64),
		gauges:   make(map[string]float64),
	}
}

func (m *MemoryMetrics) counter(key string) *int64 {
	m.mu.RLock()
	counter, exists := m.counters[key]
	m.mu.RUnlock()
	if exists {
		return counter
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if counter, exists = m.counters[key]; !exists {
		counter = new(int64)
		m.counters[key] = counter
	}
	return counter
}

// IncrementCounter 增加计数器
func (m *MemoryMetrics) IncrementCounter(name string, labels map[string]string) error {
	atomic.AddInt64(m.counter(buildKey(name, labels)), 1)
	return nil
}

// AddCounter 增加计数器指定值，负值被拒绝
func (m *MemoryMetrics) AddCounter(name string, value float64, labels map[string]string) error {
	if value < 0 {
		return fmt.Errorf("counter %s cannot decrease (value=%v)", name, value)
	}
	atomic.AddInt64(m.counter(buildKey(name, labels)), int64(value))
	return nil
}

// GetCounter 获取计数器值
func (m *MemoryMetrics) GetCounter(name string, labels map[string]string) (float64, error) {
	key := buildKey(name, labels)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if counter, exists := m.counters[key]; exists {
		return float64(atomic.LoadInt64(counter)), nil
	}
	return 0, nil
}

// SetGauge 设置 Gauge 值
func (m *MemoryMetrics) SetGauge(name string, value float64, labels map[string]string) error {
	key := buildKey(name, labels)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[key] = value
	return nil
}

// AddGauge Gauge 增减
func (m *MemoryMetrics) AddGauge(name string, delta float64, labels map[string]string) error {
	key := buildKey(name, labels)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[key] += delta
	return nil
}

// GetGauge 获取 Gauge 值
func (m *MemoryMetrics) GetGauge(name string, labels map[string]string) (float64, error) {
	key := buildKey(name, labels)
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gauges[key], nil
}

// Snapshot 导出当前全部指标
func (m *MemoryMetrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{
		Counters: make(map[string]float64, len(m.counters)),
		Gauges:   make(map[string]float64, len(m.gauges)),
	}
	for k, v := range m.counters {
		snap.Counters[k] = float64(atomic.LoadInt64(v))
	}
	for k, v := range m.gauges {
		snap.Gauges[k] = v
	}
	return snap
}

// Close 关闭指标收集器
func (m *MemoryMetrics) Close() error {
	return m.life.Dispose()
}

// Dispose 实现 dispose.Disposable，供 ServiceManager 在停止时释放
func (m *MemoryMetrics) Dispose() error {
	return m.Close()
}

// IsClosed 是否已关闭
func (m *MemoryMetrics) IsClosed() bool {
	return m.life.IsClosed()
}

// buildKey 构建指标键名，标签按键名排序
func buildKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	key := name
	for _, k := range keys {
		key = fmt.Sprintf("%s{%s=%s}", key, k, labels[k])
	}
	return key
}
