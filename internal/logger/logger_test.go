package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level  string
		format string
	}{
		{level: "debug", format: "console"},
		{level: "info", format: "json"},
		{level: "warn", format: "json"},
		{level: "error", format: "console"},
		{level: "bogus", format: "json"},
	}

	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			l, err := New(tt.level, tt.format)
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestZapAdapter_Fields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := NewZapAdapter(zap.New(core)).WithFields(map[string]interface{}{"component": "matching"})

	log.WithError(errors.New("boom")).Error("match failed", map[string]interface{}{
		"referral_id": "r-1",
		"cause":       errors.New("db down"),
	})
	log.Info("match committed", nil)

	entries := logs.All()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.Equal(t, "matching", first["component"])
	assert.Equal(t, "r-1", first["referral_id"])
	assert.Equal(t, "boom", first["error"])
	assert.Equal(t, "db down", first["cause"])

	assert.Equal(t, "match committed", entries[1].Message)
}

func TestNoOpLogger(t *testing.T) {
	log := NewNoOpLogger()
	assert.NotPanics(t, func() {
		log.Debug("x", nil)
		log.WithFields(nil).Warn("y", map[string]interface{}{"k": 1})
	})
}
