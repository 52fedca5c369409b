package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductionLoggerWritesJSONAtInfo(t *testing.T) {
	t.Cleanup(func() { Setup("") })

	var buf bytes.Buffer
	Setup("production")
	SetOutput(&buf)

	Debug("hidden %d", 1)
	assert.Empty(t, buf.String())

	Warn("send failed for %s", "alice")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "send failed for alice", line["message"])
	assert.NotEmpty(t, line["time"])
}

func TestDevelopmentLoggerEnablesDebug(t *testing.T) {
	t.Cleanup(func() { Setup("") })

	var buf bytes.Buffer
	Setup("development")
	SetOutput(&buf)

	Debug("joined %s", "c1")
	assert.Contains(t, buf.String(), "joined c1")
}
