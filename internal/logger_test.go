package internal

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_ProdWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "prod", "warn").Warn("disk low", "free_mb", 12)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "disk low", rec["msg"])
	assert.Equal(t, "bizznex", rec["service"])
	assert.Equal(t, "WARN", rec["level"])
	assert.Contains(t, rec["time"], "Z")
}

func TestNewLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "dev", "error")
	logger.Info("hidden")
	assert.Empty(t, buf.String())

	buf.Reset()
	logger = NewLogger(&buf, "dev", "verbose")
	assert.Contains(t, buf.String(), "unknown log level")
	logger.Debug("hidden")
	logger.Info("shown")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.NotContains(t, buf.String(), "hidden")
}
