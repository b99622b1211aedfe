package config

import "time"

// Config is the top-level tagbump configuration.
type Config struct {
	// Provider selects the forge backend: "github" or "gitea".
	Provider string `json:"provider" yaml:"provider"`
	// BaseURL is the API root; empty means github.com.
	BaseURL    string      `json:"base_url" yaml:"base_url"`
	Repository string      `json:"repository" yaml:"repository"`
	Username   string      `json:"username,omitempty" yaml:"username,omitempty"`
	Token      string      `json:"token,omitempty" yaml:"token,omitempty"`
	Retry      RetryConfig `json:"retry" yaml:"retry"`
	Tags       TagsConfig  `json:"tags" yaml:"tags"`

	// CI carries per-run facts from the environment and is never persisted.
	CI CIConfig `json:"-" yaml:"-"`
}

// RetryConfig bounds HTTP retries.
type RetryConfig struct {
	Interval    string `json:"interval" yaml:"interval"`
	MaxAttempts int    `json:"max_attempts" yaml:"max_attempts"`
}

// ParseInterval returns the retry interval as a time.Duration.
func (r RetryConfig) ParseInterval() time.Duration {
	d, err := time.ParseDuration(r.Interval)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// TagsConfig controls tag listing and race filtering.
type TagsConfig struct {
	PageSize   int    `json:"page_size" yaml:"page_size"`
	PageDelay  string `json:"page_delay" yaml:"page_delay"`
	RaceWindow string `json:"race_window" yaml:"race_window"`
}

// ParsePageDelay returns the pause between tag pages.
func (t TagsConfig) ParsePageDelay() time.Duration {
	d, err := time.ParseDuration(t.PageDelay)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// ParseRaceWindow returns the race window as a time.Duration.
func (t TagsConfig) ParseRaceWindow() time.Duration {
	d, err := time.ParseDuration(t.RaceWindow)
	if err != nil {
		return time.Minute
	}
	return d
}

// CIConfig holds what the CI runner tells us about the current build.
type CIConfig struct {
	// MergeRef is GITHUB_REF, e.g. refs/pull/12/merge.
	MergeRef string
	// CommitSHA is GITHUB_SHA, or HEAD of the local checkout.
	CommitSHA string
	// OutputPath is GITHUB_OUTPUT.
	OutputPath string
	// RepoRoot is the local checkout root, empty outside a checkout.
	RepoRoot string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider: "github",
		Retry: RetryConfig{
			Interval:    "2s",
			MaxAttempts: 3,
		},
		Tags: TagsConfig{
			PageSize:   100,
			PageDelay:  "500ms",
			RaceWindow: "1m",
		},
	}
}
