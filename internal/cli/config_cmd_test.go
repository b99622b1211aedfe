package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/alanmeadows/tagbump/internal/config"
)

func TestParseValue(t *testing.T) {
	assert.Equal(t, int64(1), parseValue("1"))
	assert.Equal(t, int64(100), parseValue("100"))
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, 1.5, parseValue("1.5"))
	assert.Equal(t, "90s", parseValue("90s"))
	assert.Equal(t, "gitea", parseValue("gitea"))
}

func TestSetConfigValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".tagbump", "tagbump.jsonc")

	_, err := setConfigValue(path, "provider", "gitea")
	require.NoError(t, err)
	_, err = setConfigValue(path, "tags.race_window", "2m")
	require.NoError(t, err)
	_, err = setConfigValue(path, "retry.max_attempts", "5")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "gitea", got["provider"])
	assert.Equal(t, map[string]any{"race_window": "2m"}, got["tags"])
	assert.Equal(t, map[string]any{"max_attempts": float64(5)}, got["retry"])
}

func TestSetConfigValue_StripsComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagbump.jsonc")
	require.NoError(t, os.WriteFile(path, []byte("{\n  // mirror\n  \"provider\": \"gitea\"\n}\n"), 0o644))

	_, err := setConfigValue(path, "base_url", "https://git.example.com")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "gitea", got["provider"])
	assert.Equal(t, "https://git.example.com", got["base_url"])
}

func TestRenderConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Repository = "acme/platform"
	cfg.Token = "secret"
	redacted := cfg.Redacted()

	indented, err := renderConfig(redacted, false, false)
	require.NoError(t, err)
	assert.Contains(t, string(indented), "\n  \"provider\": \"github\"")
	assert.NotContains(t, string(indented), "secret")

	compact, err := renderConfig(redacted, true, false)
	require.NoError(t, err)
	assert.NotContains(t, string(compact), "\n")

	y, err := renderConfig(redacted, false, true)
	require.NoError(t, err)
	var back config.Config
	require.NoError(t, yaml.Unmarshal(y, &back))
	assert.Equal(t, "acme/platform", back.Repository)
	assert.Equal(t, "***", back.Token)
	assert.Equal(t, "1m", back.Tags.RaceWindow)
}
