package dispose

// dispose 包不直接依赖 log，避免循环依赖
// 日志函数由 utils 在初始化时注入
var logFunc func(level string, format string, args ...interface{})

// SetLogger 设置日志函数
func SetLogger(fn func(level string, format string, args ...interface{})) {
	logFunc = fn
}

func log(level string, format string, args ...interface{}) {
	if logFunc != nil {
		logFunc(level, format, args...)
	}
}

// Debugf 调试日志
func Debugf(format string, args ...interface{}) {
	log("debug", format, args...)
}

// Errorf 错误日志
func Errorf(format string, args ...interface{}) {
	log("error", format, args...)
}

// Warn 警告消息
func Warn(msg string) {
	log("warn", "%s", msg)
}
