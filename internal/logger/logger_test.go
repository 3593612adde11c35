package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	l, err := New(DefaultConfig(path))
	require.NoError(t, err)

	l.Named("ledger").Info("Holding added", zap.String("symbol", "BTC"))
	l.Debug("hidden at info level")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "Holding added", entry["msg"])
	assert.Equal(t, "ledger", entry["logger"])
	assert.Equal(t, "BTC", entry["symbol"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewDebugLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	cfg := DefaultConfig(path)
	cfg.Debug = true
	l, err := New(cfg)
	require.NoError(t, err)

	l.Debug("visible")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"visible"`)
}

func TestNewRequiresFile(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestPrettyEncoderColoursLevel(t *testing.T) {
	entry := zapcore.Entry{
		Level:      zapcore.WarnLevel,
		Time:       time.Date(2024, 1, 1, 9, 5, 7, 0, time.UTC),
		LoggerName: "price_flow",
		Message:    "Unsupported symbol selected",
	}
	buf, err := PrettyEncoder().EncodeEntry(entry, []zapcore.Field{zap.String("symbol", "xrp")})
	require.NoError(t, err)
	defer buf.Free()

	out := buf.String()
	assert.Contains(t, out, ColorYellow+"[WARN]"+ColorReset)
	assert.Contains(t, out, "09:05:07")
	assert.Contains(t, out, "price_flow")
	assert.Contains(t, out, `"symbol": "xrp"`)
}
