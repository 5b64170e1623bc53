package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func Test_Logger_RedactsSensitiveKeys(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewWithCore(core)

	log.Info("member added", "member_id", "M1", "email", "a@b.c", "password", "hunter2")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "M1", fields["member_id"])
	assert.Equal(t, "[REDACTED]", fields["email"])
	assert.Equal(t, "[REDACTED]", fields["password"])
}

func Test_Logger_LevelsAndWith(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewWithCore(core).With("component", "ledger", "secret_key", "x")

	log.Debug("d")
	log.Warn("w")
	log.Error("e", "transaction_id", "T1")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	fields := entries[2].ContextMap()
	assert.Equal(t, "ledger", fields["component"])
	assert.Equal(t, "[REDACTED]", fields["secret_key"])
	assert.Equal(t, "T1", fields["transaction_id"])
}

func Test_New_Modes(t *testing.T) {
	for _, mode := range []string{"dev", "prod", "PRODUCTION", ""} {
		log, err := New(mode)
		require.NoError(t, err, mode)
		log.Sync()
	}
	assert.NotPanics(t, func() { Nop().Info("ignored", "k", "v") })
}

func Test_sanitizeKVs_OddLength(t *testing.T) {
	got := sanitizeKVs([]interface{}{"token", "abc", "dangling"})
	assert.Equal(t, []interface{}{"token", "[REDACTED]", "dangling"}, got)
}
