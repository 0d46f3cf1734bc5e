package log

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNopLogger 测试静默日志
func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()

	// 所有方法都不应该 panic
	logger.Debug("test")
	logger.Info("test")
	logger.Warn("test")
	logger.Error("test")
	logger.Debugf("test %s", "arg")
	logger.Infof("test %s", "arg")
	logger.Warnf("test %s", "arg")
	logger.Errorf("test %s", "arg")

	if _, ok := logger.WithField("key", "value").(NopLogger); !ok {
		t.Error("WithField should return NopLogger")
	}
	if _, ok := logger.WithFields(map[string]interface{}{"key": "value"}).(NopLogger); !ok {
		t.Error("WithFields should return NopLogger")
	}
	if _, ok := logger.WithError(nil).(NopLogger); !ok {
		t.Error("WithError should return NopLogger")
	}
	if _, ok := logger.WithContext(context.Background()).(NopLogger); !ok {
		t.Error("WithContext should return NopLogger")
	}
}

// mockTestingT 模拟 testing.T
type mockTestingT struct {
	logs []string
}

func (m *mockTestingT) Log(args ...interface{}) {
	m.logs = append(m.logs, fmt.Sprint(args...))
}

func (m *mockTestingT) Logf(format string, args ...interface{}) {
	m.logs = append(m.logs, fmt.Sprintf(format, args...))
}

// TestTestLogger 测试测试日志
func TestTestLogger(t *testing.T) {
	mock := &mockTestingT{}
	logger := NewTestLogger(mock)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warnf("warn %s", "formatted")
	logger.Errorf("error %d", 7)

	require.Len(t, mock.logs, 4)
	assert.Equal(t, "[DEBUG] debug message", mock.logs[0])
	assert.Equal(t, "[WARN] warn formatted", mock.logs[2])
	assert.Equal(t, "[ERROR] error 7", mock.logs[3])

	// 字段按键名排序追加
	mock.logs = nil
	logger.WithField("b", 2).WithField("a", 1).Info("fields")
	require.Len(t, mock.logs, 1)
	assert.Equal(t, "[INFO] fields a=1 b=2", mock.logs[0])
}

// TestLogrusLogger 测试 logrus 日志
func TestLogrusLogger(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})

	logger := NewLogrusLogger(l)

	logger.Debug("debug message")
	if !strings.Contains(buf.String(), "debug message") {
		t.Error("Debug message not found in output")
	}

	buf.Reset()
	logger.WithField("connection_id", 3).Info("with field")
	if !strings.Contains(buf.String(), "connection_id=3") {
		t.Error("Field not found in output")
	}

	buf.Reset()
	logger.WithFields(map[string]interface{}{"k1": "v1", "k2": "v2"}).Info("with fields")
	output := buf.String()
	if !strings.Contains(output, "k1=v1") || !strings.Contains(output, "k2=v2") {
		t.Error("Fields not found in output")
	}
}

// TestDefaultLogger 测试默认日志
func TestDefaultLogger(t *testing.T) {
	logger := Default()
	require.NotNil(t, logger)

	nopLogger := NewNopLogger()
	SetDefault(nopLogger)
	assert.Equal(t, nopLogger, Default())

	SetDefault(logger)
}

// TestBuild 测试按配置构建
func TestBuild(t *testing.T) {
	t.Run("invalid level", func(t *testing.T) {
		_, err := Build(Config{Level: "loud"})
		require.Error(t, err)
	})

	t.Run("file output without path", func(t *testing.T) {
		_, err := Build(Config{Output: "file"})
		require.Error(t, err)
	})

	t.Run("json to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "speedtest.log")
		logger, err := Build(Config{Level: "debug", Format: "json", Output: "file", File: path})
		require.NoError(t, err)

		logger.WithField("run_id", "abc").Info("hello")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"message":"hello"`)
		assert.Contains(t, string(data), `"run_id":"abc"`)
	})
}

// TestGlobalFunctions 测试全局函数
func TestGlobalFunctions(t *testing.T) {
	original := Default()
	defer SetDefault(original)
	SetDefault(NewNopLogger())

	Debug("test")
	Info("test")
	Warn("test")
	Error("test")
	Debugf("test %s", "arg")
	Infof("test %s", "arg")
	Warnf("test %s", "arg")
	Errorf("test %s", "arg")

	assert.NotNil(t, WithField("key", "value"))
	assert.NotNil(t, WithFields(map[string]interface{}{"key": "value"}))
	assert.NotNil(t, WithError(nil))
}
