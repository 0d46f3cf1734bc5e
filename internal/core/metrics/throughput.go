package metrics

import (
	"time"

	"speedtest-core/internal/constants"
)

// ClampElapsed 把过短的耗时提升到 constants.MinElapsed
func ClampElapsed(elapsed time.Duration) time.Duration {
	if elapsed < constants.MinElapsed {
		return constants.MinElapsed
	}
	return elapsed
}

// Throughput 计算 bits/second，耗时先经过 ClampElapsed，结果总是有限值
func Throughput(bytes uint64, elapsed time.Duration) float64 {
	return float64(bytes) * 8 / ClampElapsed(elapsed).Seconds()
}

// DeliveryRatio 已收到分片数占总分片数的百分比，total 为 0 时返回 0
func DeliveryRatio(received, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(received) / float64(total) * 100
}
