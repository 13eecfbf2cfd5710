package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesJSONToConfiguredOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Output: &buf})

	l.Info().Str("ticker", "AAPL").Msg("profile updated")

	out := buf.String()
	assert.Contains(t, out, `"message":"profile updated"`)
	assert.Contains(t, out, `"ticker":"AAPL"`)
}

func TestNew_AllLogLevels(t *testing.T) {
	testCases := []struct {
		level         string
		expectedLevel zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"WARNING", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"unknown", zerolog.InfoLevel},
	}

	for _, tc := range testCases {
		t.Run(tc.level, func(t *testing.T) {
			New(Config{Level: tc.level, Output: &bytes.Buffer{}})
			assert.Equal(t, tc.expectedLevel, zerolog.GlobalLevel())
		})
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func TestNew_PrettyOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Pretty: true, Output: &buf})

	l.Info().Msg("pretty message")

	out := buf.String()
	require.NotEmpty(t, out)
	assert.Contains(t, out, "pretty message")
	assert.NotContains(t, out, `"message"`)
}

func TestFromFormat(t *testing.T) {
	assert.True(t, FromFormat("debug", "text").Pretty)
	assert.False(t, FromFormat("debug", "json").Pretty)
	assert.Equal(t, "debug", FromFormat("debug", "json").Level)
}
