package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, false).Info("computed next version", "version", "svc-v1.2.4")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	assert.Equal(t, "computed next version", entry["msg"])
	assert.Equal(t, "svc-v1.2.4", entry["version"])
}

func TestNew_Levels(t *testing.T) {
	var quiet bytes.Buffer
	New(&quiet, false).Debug("hidden")
	assert.Empty(t, quiet.String())

	var loud bytes.Buffer
	New(&loud, true).Debug("shown")
	assert.True(t, strings.Contains(loud.String(), "shown"))
}
