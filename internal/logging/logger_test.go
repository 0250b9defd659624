package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantLevel logrus.Level
		wantJSON  bool
	}{
		{name: "defaults", wantLevel: logrus.InfoLevel},
		{name: "debug text", level: "debug", format: "text", wantLevel: logrus.DebugLevel},
		{name: "uppercase level json", level: "WARN", format: "json", wantLevel: logrus.WarnLevel, wantJSON: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.level, tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLevel, logger.GetLevel())

			_, isJSON := logger.Formatter.(*logrus.JSONFormatter)
			assert.Equal(t, tt.wantJSON, isJSON)
		})
	}
}

func TestNewLogger_Invalid(t *testing.T) {
	_, err := NewLogger("chatty", "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")

	_, err = NewLogger("info", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log format")
}

func TestInitSentry_EmptyDSN(t *testing.T) {
	logger := Discard()

	flush, err := InitSentry(logger, SentrySettings{})
	require.NoError(t, err)
	require.NotNil(t, flush)
	flush()

	assert.Empty(t, logger.Hooks)
}

func TestInitSentry_InvalidDSN(t *testing.T) {
	_, err := InitSentry(Discard(), SentrySettings{DSN: "not a dsn"})
	assert.Error(t, err)
}
