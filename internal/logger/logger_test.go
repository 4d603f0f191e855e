package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestInit(t *testing.T) {
	assert.NotNil(t, GetZapLogger())

	require.NoError(t, Init("warn", "json"))
	assert.False(t, GetZapLogger().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, GetZapLogger().Core().Enabled(zapcore.WarnLevel))
	assert.NotNil(t, Named("downloader"))

	require.NoError(t, Init("debug", "text"))
	assert.True(t, GetZapLogger().Core().Enabled(zapcore.DebugLevel))

	assert.Error(t, Init("loud", "text"))
	assert.Error(t, Init("info", "xml"))
}

func TestSetLevel(t *testing.T) {
	require.NoError(t, Init("info", "text"))
	child := Named("transport")
	assert.False(t, child.Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, SetLevel("debug"))
	assert.True(t, child.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, GetZapLogger().Core().Enabled(zapcore.DebugLevel))

	assert.Error(t, SetLevel("chatty"))
	assert.True(t, child.Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, SetLevel("error"))
	assert.False(t, child.Core().Enabled(zapcore.WarnLevel))
}
