package utils

import (
	"speedtest-core/internal/config/schema"
	"speedtest-core/internal/core/dispose"
	corelog "speedtest-core/internal/core/log"
)

// InitLogger 按配置初始化全局日志，并把 dispose 包的日志接到同一个 Logger
func InitLogger(cfg schema.LogConfig) error {
	if err := corelog.Init(corelog.Config{
		Level:  cfg.Level,
		Format: cfg.Format,
		Output: cfg.Output,
		File:   cfg.File,
	}); err != nil {
		return err
	}
	HookDisposeLogger()
	return nil
}

// HookDisposeLogger 设置 dispose 包的日志函数
func HookDisposeLogger() {
	dispose.SetLogger(func(level string, format string, args ...interface{}) {
		switch level {
		case "debug":
			corelog.Debugf(format, args...)
		case "warn":
			corelog.Warnf(format, args...)
		case "error":
			corelog.Errorf(format, args...)
		default:
			corelog.Infof(format, args...)
		}
	})
}
