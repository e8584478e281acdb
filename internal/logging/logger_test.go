package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, level int) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := LogLevel
	SetOutput(&buf)
	SetLogLevel(level)
	t.Cleanup(func() {
		SetLogLevel(prev)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, Warning)

	Debugf("hidden %d", 1)
	Infof("hidden %d", 2)
	assert.Zero(t, buf.Len())

	Warningf("shown %d", 3)
	assert.Contains(t, buf.String(), "shown 3")
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestComponentLoggerFields(t *testing.T) {
	buf := capture(t, Debug)

	With("review").Info("review finished", "provider_kind", "gemini", "files", 2, "error", errors.New("boom"))

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "review", line["component"])
	assert.Equal(t, "gemini", line["provider_kind"])
	assert.Equal(t, float64(2), line["files"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "review finished", line["message"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"debug", Debug, true},
		{"INFO", Info, true},
		{"warn", Warning, true},
		{"error", Error, true},
		{"verbose", NotSet, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
