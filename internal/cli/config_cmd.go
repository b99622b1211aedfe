package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tidwall/jsonc"
	"github.com/tidwall/sjson"
	"gopkg.in/yaml.v3"

	"github.com/alanmeadows/tagbump/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage tagbump configuration",
	Long:  `Show and modify tagbump configuration values.`,
}

var (
	configJSONFlag bool
	configYAMLFlag bool
)

func init() {
	configShowCmd.Flags().BoolVar(&configJSONFlag, "json", false, "Output compact JSON")
	configShowCmd.Flags().BoolVar(&configYAMLFlag, "yaml", false, "Output YAML")
	configShowCmd.MarkFlagsMutuallyExclusive("json", "yaml")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show merged configuration",
	Long: `Show the configuration after merging defaults, the user file, the repo
file, .env and the environment. The token is redacted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := renderConfig(appConfig.Redacted(), configJSONFlag, configYAMLFlag)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func renderConfig(cfg *config.Config, compact, asYAML bool) ([]byte, error) {
	var data []byte
	var err error
	switch {
	case asYAML:
		data, err = yaml.Marshal(cfg)
	case compact:
		data, err = json.Marshal(cfg)
	default:
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value",
	Long: `Set a configuration value using a dotted key path.

The value is written to .tagbump/tagbump.jsonc in the repository root.
The file is created if it does not exist.

Note: JSONC comments are not preserved on write.`,
	Example: `  tagbump config set provider gitea
  tagbump config set base_url https://git.example.com
  tagbump config set tags.race_window 90s
  tagbump config set retry.max_attempts 5`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if appConfig.CI.RepoRoot == "" {
			return fmt.Errorf("not in a git repository")
		}
		path := config.RepoConfigPath(appConfig.CI.RepoRoot)
		value, err := setConfigValue(path, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v\n", args[0], value)
		return nil
	},
}

// parseValue types a raw command-line value: integer, then bool, then
// float, then string. Integers come first so "1" stays a number.
func parseValue(raw string) any {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

// setConfigValue writes key=raw into the JSONC file at path and returns the
// typed value.
func setConfigValue(path, key, raw string) (any, error) {
	value := parseValue(raw)

	existing := []byte("{}")
	if data, err := os.ReadFile(path); err == nil {
		// sjson needs plain JSON; comments are dropped.
		existing = jsonc.ToJSON(data)
	}

	updated, err := sjson.SetBytes(existing, key, value)
	if err != nil {
		return nil, fmt.Errorf("setting key %q: %w", key, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, updated, 0o644); err != nil {
		return nil, fmt.Errorf("writing config: %w", err)
	}
	return value, nil
}
