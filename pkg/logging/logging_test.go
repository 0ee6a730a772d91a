package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
		enabled zapcore.Level
	}{
		{"json info", "info", "json", false, zapcore.InfoLevel},
		{"console debug", "debug", "console", false, zapcore.DebugLevel},
		{"default format", "warn", "", false, zapcore.WarnLevel},
		{"bad level", "loud", "json", true, 0},
		{"bad format", "info", "xml", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.level, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tt.enabled))
			assert.False(t, l.Core().Enabled(tt.enabled-1))
		})
	}
}

func TestSetLogger(t *testing.T) {
	defer SetLogger(nil)

	l := zap.NewExample()
	SetLogger(l)
	assert.Same(t, l, Logger())

	SetLogger(nil)
	assert.False(t, Logger().Core().Enabled(zapcore.FatalLevel))
}
