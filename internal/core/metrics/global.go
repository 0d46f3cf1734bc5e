package metrics

import (
	"errors"
	"sync"
)

var (
	globalMetrics Metrics
	globalMu      sync.RWMutex

	// ErrNilMetrics 当传入 nil Metrics 时返回
	ErrNilMetrics = errors.New("metrics: SetGlobalMetrics called with nil")
	// ErrNotInitialized 当 Metrics 未初始化时返回
	ErrNotInitialized = errors.New("metrics: global metrics not initialized, call SetGlobalMetrics first")
)

// SetGlobalMetrics 设置全局 Metrics 实例
func SetGlobalMetrics(m Metrics) error {
	if m == nil {
		return ErrNilMetrics
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
	return nil
}

// GetGlobalMetrics 获取全局 Metrics 实例
func GetGlobalMetrics() Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// OrGlobal 优先返回 m，为 nil 时退回全局实例，全局也未设置时创建一个内存实现
func OrGlobal(m Metrics) Metrics {
	if m != nil {
		return m
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalMetrics == nil {
		globalMetrics = NewMemoryMetrics(nil)
	}
	return globalMetrics
}

// IncrementCounter 全局便捷方法：增加计数器
func IncrementCounter(name string, labels map[string]string) error {
	m := GetGlobalMetrics()
	if m == nil {
		return ErrNotInitialized
	}
	return m.IncrementCounter(name, labels)
}

// GetCounter 全局便捷方法：获取计数器值
func GetCounter(name string, labels map[string]string) (float64, error) {
	m := GetGlobalMetrics()
	if m == nil {
		return 0, ErrNotInitialized
	}
	return m.GetCounter(name, labels)
}
