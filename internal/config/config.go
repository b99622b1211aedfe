package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"

	"github.com/alanmeadows/tagbump/internal/gitinfo"
	"github.com/alanmeadows/tagbump/internal/provider"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

const (
	dirName  = ".tagbump"
	fileName = "tagbump.jsonc"
)

// UserConfigPath is the per-user config file, or "" if there is no config dir.
func UserConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "tagbump", fileName)
}

// RepoConfigPath is the repo-level config file under root.
func RepoConfigPath(root string) string {
	return filepath.Join(root, dirName, fileName)
}

// Load builds the configuration for a run started in dir.
// Resolution order: defaults, user config, repo config (.tagbump/tagbump.jsonc),
// .env in dir, environment. Local git state fills repository and commit when
// the environment leaves them unset.
func Load(dir string) (*Config, error) {
	cfg := DefaultConfig()

	if userPath := UserConfigPath(); userPath != "" {
		if err := mergeFile(&cfg, userPath); err != nil {
			return nil, fmt.Errorf("merging user config: %w", err)
		}
	}

	repo, err := gitinfo.Open(dir)
	if err != nil && !errors.Is(err, gitinfo.ErrNotRepository) {
		return nil, err
	}
	if repo != nil {
		cfg.CI.RepoRoot = repo.Root()
		if err := mergeFile(&cfg, RepoConfigPath(repo.Root())); err != nil {
			return nil, fmt.Errorf("merging repo config: %w", err)
		}
	}

	if err := loadDotEnv(filepath.Join(dir, ".env")); err != nil {
		return nil, err
	}

	applyEnvOverrides(&cfg)

	if repo != nil {
		applyGitFallbacks(&cfg, repo)
	}

	return &cfg, nil
}

// mergeFile merges path over cfg. A missing file is not an error.
func mergeFile(cfg *Config, path string) error {
	m, err := loadJSONC(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	slog.Debug("loaded config file", "path", path)
	return mergeIntoConfig(cfg, m)
}

// loadJSONC reads a JSONC file and returns it as a map.
func loadJSONC(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, nil
}

// mergeIntoConfig round-trips cfg through a map so src can be deep-merged
// over it with mergo.
func mergeIntoConfig(cfg *Config, src map[string]any) error {
	cfgBytes, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	var dst map[string]any
	if err := json.Unmarshal(cfgBytes, &dst); err != nil {
		return err
	}

	if err := mergo.Merge(&dst, src, mergo.WithOverride); err != nil {
		return err
	}

	merged, err := json.Marshal(dst)
	if err != nil {
		return err
	}
	ci := cfg.CI
	if err := json.Unmarshal(merged, cfg); err != nil {
		return err
	}
	cfg.CI = ci
	return nil
}

// loadDotEnv exports variables from a .env file without overriding the
// real environment.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		slog.Debug("loaded .env", "path", path)
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading %s: %w", path, err)
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		cfg.Token = token
	}
	if token := os.Getenv("TAGBUMP_TOKEN"); token != "" {
		cfg.Token = token
	}
	if p := os.Getenv("TAGBUMP_PROVIDER"); p != "" {
		cfg.Provider = p
	}
	if repo := os.Getenv("GITHUB_REPOSITORY"); repo != "" {
		cfg.Repository = repo
	}
	if url := os.Getenv("GITHUB_API_URL"); url != "" {
		cfg.BaseURL = url
	}
	cfg.CI.MergeRef = os.Getenv("GITHUB_REF")
	cfg.CI.CommitSHA = os.Getenv("GITHUB_SHA")
	cfg.CI.OutputPath = os.Getenv("GITHUB_OUTPUT")
}

// applyGitFallbacks fills repository and commit from the local checkout.
func applyGitFallbacks(cfg *Config, repo *gitinfo.Repo) {
	if cfg.CI.CommitSHA == "" {
		if sha, err := repo.HeadSHA(); err == nil {
			cfg.CI.CommitSHA = sha
		} else {
			slog.Debug("no HEAD commit", "error", err)
		}
	}
	if cfg.Repository == "" {
		url, err := repo.OriginURL()
		if err != nil {
			slog.Debug("no origin remote", "error", err)
			return
		}
		owner, name, err := provider.ParseRepo(url)
		if err != nil {
			slog.Debug("origin remote is not owner/repo", "url", url, "error", err)
			return
		}
		cfg.Repository = owner + "/" + name
	}
}

// Validate checks the values a run depends on.
func (c *Config) Validate() error {
	var problems []string
	if c.Provider == "" {
		problems = append(problems, "provider is empty")
	}
	if c.Repository == "" {
		problems = append(problems, "repository is not set (use --repo, GITHUB_REPOSITORY or an origin remote)")
	} else if _, _, err := provider.ParseRepo(c.Repository); err != nil {
		problems = append(problems, fmt.Sprintf("repository %q: %v", c.Repository, err))
	}
	if c.Retry.MaxAttempts < 1 {
		problems = append(problems, "retry.max_attempts must be at least 1")
	}
	if c.Tags.PageSize < 1 || c.Tags.PageSize > 100 {
		problems = append(problems, "tags.page_size must be between 1 and 100")
	}
	for key, val := range map[string]string{
		"retry.interval":   c.Retry.Interval,
		"tags.page_delay":  c.Tags.PageDelay,
		"tags.race_window": c.Tags.RaceWindow,
	} {
		if d, err := time.ParseDuration(val); err != nil || d < 0 {
			problems = append(problems, fmt.Sprintf("%s: %q is not a duration", key, val))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	slices.Sort(problems)
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
}

// ProviderOptions converts the config into backend options.
func (c *Config) ProviderOptions() (provider.Options, error) {
	owner, repo, err := provider.ParseRepo(c.Repository)
	if err != nil {
		return provider.Options{}, fmt.Errorf("%w: repository %q: %v", ErrInvalid, c.Repository, err)
	}
	return provider.Options{
		Owner:     owner,
		Repo:      repo,
		BaseURL:   c.BaseURL,
		Username:  c.Username,
		Token:     c.Token,
		PageSize:  c.Tags.PageSize,
		PageDelay: c.Tags.ParsePageDelay(),
		Retry: provider.RetryPolicy{
			Interval:    c.Retry.ParseInterval(),
			MaxAttempts: c.Retry.MaxAttempts,
		},
	}, nil
}

// Redacted returns a copy with secrets masked for display.
func (c *Config) Redacted() *Config {
	cp := *c
	if cp.Token != "" {
		cp.Token = "***"
	}
	return &cp
}
