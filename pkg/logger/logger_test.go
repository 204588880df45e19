package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/copilot/pkg/config"
)

// entries decodes one JSON object per line
func entries(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		out = append(out, entry)
	}
	return out
}

func TestNew_Level(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
		debug bool
	}{
		{"debug", zerolog.DebugLevel, true},
		{"info", zerolog.InfoLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log := New(&config.Config{Env: "development", LogLevel: tt.level, LogFormat: "json"})
			assert.Equal(t, tt.want, log.zlog.GetLevel())
			assert.Equal(t, tt.debug, log.DebugEnabled())
		})
	}

	// 인스턴스 레벨만 설정, 전역 레벨은 그대로
	assert.Equal(t, zerolog.TraceLevel, zerolog.GlobalLevel())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"TRACE", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{" Warn ", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn")

	log.Debug("dropped")
	log.Info("dropped")
	log.Infof("dropped %d", 1)
	assert.Zero(t, buf.Len())

	log.Warn("sector cap reached")
	log.Errorf("catalog %s failed", "reload")

	got := entries(t, &buf)
	require.Len(t, got, 2)
	assert.Equal(t, "warn", got[0]["level"])
	assert.Equal(t, "sector cap reached", got[0]["message"])
	assert.Equal(t, "error", got[1]["level"])
	assert.Equal(t, "catalog reload failed", got[1]["message"])
}

func TestFormattedMethods(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug")

	log.Debugf("step %s", "normalize")
	log.Infof("%d actions", 4)
	log.Warnf("%s over %.0f%%", "AAPL", 20.0)

	got := entries(t, &buf)
	require.Len(t, got, 3)
	assert.Equal(t, "step normalize", got[0]["message"])
	assert.Equal(t, "4 actions", got[1]["message"])
	assert.Equal(t, "AAPL over 20%", got[2]["message"])
}

func TestFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug")

	log.Component("engine").
		WithField("tier", "moderate").
		WithFields(map[string]interface{}{"actions": 3, "cash": 0.05}).
		WithError(errors.New("boom")).
		WithDuration(1500 * time.Microsecond).
		Info("Rebalance plan computed")

	got := entries(t, &buf)
	require.Len(t, got, 1)
	entry := got[0]
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "moderate", entry["tier"])
	assert.Equal(t, float64(3), entry["actions"])
	assert.Equal(t, 0.05, entry["cash"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, 1.5, entry["duration_ms"])
	assert.Contains(t, entry, "time")
}

func TestWithField_DoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewWithWriter(&buf, "info")

	_ = parent.WithField("user_id", "u1")
	parent.Info("plain")

	got := entries(t, &buf)
	require.Len(t, got, 1)
	assert.NotContains(t, got[0], "user_id")
}

func TestNew_Formats(t *testing.T) {
	for _, format := range []string{"json", "console", "pretty"} {
		t.Run(format, func(t *testing.T) {
			oldStdout := os.Stdout
			r, w, err := os.Pipe()
			require.NoError(t, err)
			os.Stdout = w

			New(&config.Config{Env: "development", LogLevel: "info", LogFormat: format}).Info("test message")

			w.Close()
			os.Stdout = oldStdout

			var buf bytes.Buffer
			_, _ = io.Copy(&buf, r)
			assert.Contains(t, buf.String(), "test message")

			if format == "json" {
				entry := entries(t, &buf)[0]
				assert.Equal(t, "copilot", entry["service"])
				assert.Equal(t, "development", entry["env"])
			}
		})
	}
}

func TestNop(t *testing.T) {
	log := Nop()
	assert.False(t, log.DebugEnabled())
	assert.NotPanics(t, func() {
		log.Component("api").WithField("k", "v").Info("ignored")
		log.WithError(errors.New("x")).Error("ignored")
	})
}
