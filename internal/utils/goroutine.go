package utils

import (
	"fmt"
	"runtime/debug"

	corelog "speedtest-core/internal/core/log"
)

// SafeGo 安全地启动一个 goroutine，捕获并记录 panic
func SafeGo(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				corelog.Errorf("FATAL: goroutine '%s' panic recovered: %v", name, r)
				corelog.Errorf("Stack trace:\n%s", string(debug.Stack()))
			}
		}()
		fn()
	}()
}

// Recover 在当前 goroutine 中执行 fn，panic 被转换为 error 返回
func Recover(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			corelog.Errorf("goroutine '%s' panic recovered: %v", name, r)
			corelog.Debugf("Stack trace:\n%s", string(debug.Stack()))
			err = fmt.Errorf("%s panicked: %v", name, r)
		}
	}()
	return fn()
}
