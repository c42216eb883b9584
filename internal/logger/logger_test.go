package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info")

	log.With("component", "queue").Info("ticket added", "ticket_id", "abc", "err", errors.New("boom"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ticket added", entry["message"])
	assert.Equal(t, "queue", entry["component"])
	assert.Equal(t, "abc", entry["ticket_id"])
	assert.Equal(t, "boom", entry["err"])
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantDebug bool
	}{
		{name: "debugLevel", level: "debug", wantDebug: true},
		{name: "infoLevel", level: "info", wantDebug: false},
		{name: "unknownFallsBackToInfo", level: "chatty", wantDebug: false},
		{name: "emptyFallsBackToInfo", level: "", wantDebug: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewWithWriter(&buf, tt.level).Debug("tick")
			assert.Equal(t, tt.wantDebug, buf.Len() > 0)
		})
	}
}

func TestNormalizeDanglingKey(t *testing.T) {
	got := normalize([]any{"a", 1, 42})
	assert.Equal(t, []any{"a", 1, "42", "(MISSING)"}, got)
}

func TestNoopLogger(t *testing.T) {
	log := NewNoop()
	// Should not panic
	log.With("k", "v").Info("msg")
	log.Errorf("%d", 1)
}
