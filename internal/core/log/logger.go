// Package log 提供统一的日志接口和实现
// 支持依赖注入，便于测试时替换
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"speedtest-core/internal/constants"

	"github.com/sirupsen/logrus"
)

// Logger 日志接口
// 所有组件应通过此接口记录日志，而非直接使用全局函数
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})

	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger
	WithContext(ctx context.Context) Logger
}

// Config 日志配置
type Config struct {
	Level  string
	Format string
	Output string
	File   string
}

// ============================================================================
// logrusLogger - 基于 logrus 的 Logger 实现
// ============================================================================

type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger 创建基于 logrus 的 Logger
func NewLogrusLogger(l *logrus.Logger) Logger {
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

func (l *logrusLogger) Debug(args ...interface{}) { l.entry.Debug(args...) }
func (l *logrusLogger) Info(args ...interface{})  { l.entry.Info(args...) }
func (l *logrusLogger) Warn(args ...interface{})  { l.entry.Warn(args...) }
func (l *logrusLogger) Error(args ...interface{}) { l.entry.Error(args...) }

func (l *logrusLogger) Debugf(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l *logrusLogger) Infof(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l *logrusLogger) Warnf(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

func (l *logrusLogger) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

func (l *logrusLogger) WithField(key string, value interface{}) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value)}
}

func (l *logrusLogger) WithFields(fields map[string]interface{}) Logger {
	return &logrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *logrusLogger) WithError(err error) Logger {
	return &logrusLogger{entry: l.entry.WithError(err)}
}

func (l *logrusLogger) WithContext(ctx context.Context) Logger {
	return &logrusLogger{entry: l.entry.WithContext(ctx)}
}

// ============================================================================
// NopLogger - 静默日志（用于测试）
// ============================================================================

// NopLogger 静默日志，不输出任何内容
type NopLogger struct{}

func (NopLogger) Debug(args ...interface{})                         {}
func (NopLogger) Info(args ...interface{})                          {}
func (NopLogger) Warn(args ...interface{})                          {}
func (NopLogger) Error(args ...interface{})                         {}
func (NopLogger) Debugf(format string, args ...interface{})         {}
func (NopLogger) Infof(format string, args ...interface{})          {}
func (NopLogger) Warnf(format string, args ...interface{})          {}
func (NopLogger) Errorf(format string, args ...interface{})         {}
func (n NopLogger) WithField(key string, value interface{}) Logger  { return n }
func (n NopLogger) WithFields(fields map[string]interface{}) Logger { return n }
func (n NopLogger) WithError(err error) Logger                      { return n }
func (n NopLogger) WithContext(ctx context.Context) Logger          { return n }

// NewNopLogger 创建静默日志
func NewNopLogger() Logger {
	return NopLogger{}
}

// ============================================================================
// TestLogger - 测试日志（输出到 testing.T）
// ============================================================================

// TestingT 测试接口（兼容 *testing.T）
type TestingT interface {
	Log(args ...interface{})
	Logf(format string, args ...interface{})
}

// TestLogger 测试日志，输出到 testing.T
type TestLogger struct {
	t      TestingT
	fields map[string]interface{}
}

// NewTestLogger 创建测试日志
func NewTestLogger(t TestingT) Logger {
	return &TestLogger{t: t, fields: make(map[string]interface{})}
}

func (l *TestLogger) log(level string, msg string) {
	l.t.Logf("[%s] %s%s", level, msg, l.suffix())
}

// suffix 按键名排序输出字段
func (l *TestLogger) suffix() string {
	if len(l.fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(l.fields))
	for k := range l.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, l.fields[k])
	}
	return b.String()
}

func (l *TestLogger) Debug(args ...interface{}) { l.log("DEBUG", fmt.Sprint(args...)) }
func (l *TestLogger) Info(args ...interface{})  { l.log("INFO", fmt.Sprint(args...)) }
func (l *TestLogger) Warn(args ...interface{})  { l.log("WARN", fmt.Sprint(args...)) }
func (l *TestLogger) Error(args ...interface{}) { l.log("ERROR", fmt.Sprint(args...)) }

func (l *TestLogger) Debugf(format string, args ...interface{}) {
	l.log("DEBUG", fmt.Sprintf(format, args...))
}

func (l *TestLogger) Infof(format string, args ...interface{}) {
	l.log("INFO", fmt.Sprintf(format, args...))
}

func (l *TestLogger) Warnf(format string, args ...interface{}) {
	l.log("WARN", fmt.Sprintf(format, args...))
}

func (l *TestLogger) Errorf(format string, args ...interface{}) {
	l.log("ERROR", fmt.Sprintf(format, args...))
}

func (l *TestLogger) WithField(key string, value interface{}) Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

func (l *TestLogger) WithFields(fields map[string]interface{}) Logger {
	newFields := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}
	return &TestLogger{t: l.t, fields: newFields}
}

func (l *TestLogger) WithError(err error) Logger {
	return l.WithField("error", err)
}

func (l *TestLogger) WithContext(ctx context.Context) Logger {
	return l
}

// ============================================================================
// 默认 Logger 管理
// ============================================================================

var (
	defaultLogger     Logger
	defaultLoggerOnce sync.Once
	defaultLoggerMu   sync.RWMutex
	currentLogFile    *os.File
)

func newBaseLogrus() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: time.RFC3339,
		FullTimestamp:   true,
	})
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	return l
}

func initDefaultLogger() {
	defaultLogger = NewLogrusLogger(newBaseLogrus())
}

// Default 获取默认 Logger
func Default() Logger {
	defaultLoggerOnce.Do(initDefaultLogger)
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

// SetDefault 设置默认 Logger
func SetDefault(l Logger) {
	defaultLoggerOnce.Do(initDefaultLogger)
	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	defaultLogger = l
}

// Init 根据配置构建 logrus 实例并设为默认 Logger
func Init(cfg Config) error {
	l, err := Build(cfg)
	if err != nil {
		return err
	}
	SetDefault(l)
	return nil
}

// Build 根据配置构建 Logger
func Build(cfg Config) (Logger, error) {
	l := newBaseLogrus()

	if cfg.Level != "" {
		level, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %s", cfg.Level)
		}
		l.SetLevel(level)
	}

	if cfg.Format == constants.LogFormatJSON {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}

	out, err := openOutput(cfg)
	if err != nil {
		return nil, err
	}
	l.SetOutput(out)
	return NewLogrusLogger(l), nil
}

func openOutput(cfg Config) (io.Writer, error) {
	switch cfg.Output {
	case constants.LogOutputStdout:
		return os.Stdout, nil
	case constants.LogOutputFile:
		if cfg.File == "" {
			return nil, fmt.Errorf("log output is file but no file path given")
		}
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		defaultLoggerMu.Lock()
		if currentLogFile != nil {
			_ = currentLogFile.Close()
		}
		currentLogFile = file
		defaultLoggerMu.Unlock()
		return file, nil
	default:
		return os.Stderr, nil
	}
}
