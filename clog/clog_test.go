package clog

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T, cfg *Config, opts ...Option) (Logger, *bytes.Buffer) {
	t.Helper()

	buf := &bytes.Buffer{}
	logger, err := New(cfg, append(opts, WithWriter(buf))...)
	require.NoError(t, err)
	return logger, buf
}

func TestNew(t *testing.T) {
	t.Run("nil 配置使用默认值", func(t *testing.T) {
		logger, err := New(nil)
		require.NoError(t, err)
		assert.NotNil(t, logger)
	})

	t.Run("非法级别返回错误", func(t *testing.T) {
		_, err := New(&Config{Level: "verbose"})
		assert.Error(t, err)
	})

	t.Run("非法格式返回错误", func(t *testing.T) {
		_, err := New(&Config{Format: "xml"})
		assert.Error(t, err)
	})
}

func TestLogger_JSON(t *testing.T) {
	logger, buf := newTestLogger(t, &Config{Level: "debug", Format: "json"})

	logger.Info("hello", String("key", "value"), Int("count", 3))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, float64(3), entry["count"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestLogger_LevelFilter(t *testing.T) {
	logger, buf := newTestLogger(t, &Config{Level: "warn", Format: "json"})

	logger.Debug("invisible")
	logger.Info("invisible")
	assert.Zero(t, buf.Len(), "低于 warn 的日志应该被过滤")

	logger.Warn("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestLogger_SetLevel(t *testing.T) {
	logger, buf := newTestLogger(t, &Config{Level: "info", Format: "json"})

	logger.Debug("before")
	assert.Zero(t, buf.Len())

	require.NoError(t, logger.SetLevel(DebugLevel))
	logger.Debug("after")
	assert.Contains(t, buf.String(), "after")
}

func TestLogger_With(t *testing.T) {
	logger, buf := newTestLogger(t, &Config{Level: "debug", Format: "json"})

	child := logger.With(String("component", "breaker"))
	child.Info("created")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "breaker", entry["component"])

	t.Run("父 Logger 不受影响", func(t *testing.T) {
		buf.Reset()
		logger.Info("plain")
		assert.NotContains(t, buf.String(), "breaker")
	})
}

func TestLogger_WithNamespace(t *testing.T) {
	logger, buf := newTestLogger(t, &Config{Level: "debug", Format: "json", Service: "admin-api"})

	logger.WithNamespace("throttle").Info("check")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "admin-api.throttle", entry[NamespaceKey])
}

func TestFields_Error(t *testing.T) {
	logger, buf := newTestLogger(t, &Config{Level: "debug", Format: "console"})

	logger.Error("failed", Error(assert.AnError))
	assert.Contains(t, buf.String(), "err_msg=")

	t.Run("nil 错误不输出内容", func(t *testing.T) {
		buf.Reset()
		logger.Error("failed", Error(nil))
		assert.False(t, strings.Contains(buf.String(), "err_msg"))
	})
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	// 所有调用都不应 panic
	logger.Debug("a")
	logger.Info("b", String("k", "v"))
	logger.Error("c")
	assert.Equal(t, logger, logger.With(String("k", "v")))
	assert.NoError(t, logger.SetLevel(ErrorLevel))
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug": DebugLevel,
		"INFO":  InfoLevel,
		"Warn":  WarnLevel,
		"error": ErrorLevel,
		"fatal": FatalLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseLevel("trace")
	assert.Error(t, err)
}
