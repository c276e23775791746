package observ

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, fn func()) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	prev := out
	out = &buf
	defer func() { out = prev }()

	fn()

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestLogEmitsEventAndFields(t *testing.T) {
	line := capture(t, func() {
		Log("order_submitted", map[string]any{"symbol": "AAPL", "quantity": 5.0})
	})

	assert.Equal(t, "order_submitted", line["event"])
	assert.Equal(t, "AAPL", line["symbol"])
	assert.Equal(t, 5.0, line["quantity"])
	assert.NotEmpty(t, line["ts"])
}

func TestLogLeavesCallerMapAlone(t *testing.T) {
	kv := map[string]any{"symbol": "MSFT"}
	capture(t, func() { Log("tick", kv) })

	assert.Equal(t, map[string]any{"symbol": "MSFT"}, kv)
}

func TestLogErrorFlattensError(t *testing.T) {
	line := capture(t, func() {
		LogError("dispatch_failed", errors.New("gateway down"), map[string]any{"symbol": "NVDA"})
	})

	assert.Equal(t, "dispatch_failed", line["event"])
	assert.Equal(t, "gateway down", line["error"])
	assert.Equal(t, "NVDA", line["symbol"])
}

func TestLogErrorWithNilFields(t *testing.T) {
	line := capture(t, func() {
		LogError("cache_put_failed", errors.New("disk full"), nil)
	})

	assert.Equal(t, "disk full", line["error"])
}
