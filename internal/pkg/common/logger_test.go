package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observeLogs(t *testing.T, mode string) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prevLogger, prevMode := Logger, LogMode
	Logger, LogMode = zap.New(core), mode
	t.Cleanup(func() { Logger, LogMode = prevLogger, prevMode })
	return logs
}

func TestConciseMode(t *testing.T) {
	tests := []struct {
		msg  string
		kept bool
	}{
		{"請求完成", true},
		{"啟動應用", true},
		{"食譜搜尋完成", true},
		{"Shutting down server...", true},
		{"Server exited", true},
		{"快取命中", false},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			logs := observeLogs(t, "concise")
			LogInfo(tt.msg)
			LogDebug(tt.msg)
			if tt.kept {
				assert.Equal(t, 1, logs.Len())
			} else {
				assert.Zero(t, logs.Len())
			}
		})
	}
}

func TestLogFiltersFields(t *testing.T) {
	logs := observeLogs(t, "")
	LogWarn("fetch", zap.String("html", "<p>"), zap.String("openrouter_api_key", "k"), zap.Int("status", 200))

	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, map[string]any{"status": int64(200)}, entries[0].ContextMap())
}
