package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Text(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, Config{Level: "warn", Format: "text"})

	log.Info("hidden")
	Command("up").Warn("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "level=warning")
	assert.Contains(t, out, "command=up")
	assert.NotContains(t, out, "time=")
}

func TestInit_JSON(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, Config{Level: "bogus", Format: "JSON"})

	assert.Equal(t, log.InfoLevel, log.GetLevel())
	Command("clean").Info("removed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "clean", entry["command"])
	assert.Equal(t, "removed", entry["msg"])
}
