package cli

import (
	"fmt"

	"github.com/alanmeadows/tagbump/internal/config"
	"github.com/alanmeadows/tagbump/internal/provider"
	"github.com/alanmeadows/tagbump/internal/provider/gitea"
	ghbackend "github.com/alanmeadows/tagbump/internal/provider/github"
)

// buildRegistry returns a registry with every supported forge.
func buildRegistry() *provider.Registry {
	reg := provider.NewRegistry()
	reg.Register("github", ghbackend.New)
	reg.Register("gitea", gitea.New)
	return reg
}

// openBackend validates cfg and creates the configured backend.
func openBackend(cfg *config.Config) (provider.Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := cfg.ProviderOptions()
	if err != nil {
		return nil, err
	}
	backend, err := buildRegistry().New(cfg.Provider, opts)
	if err != nil {
		return nil, fmt.Errorf("creating %s backend: %w", cfg.Provider, err)
	}
	return backend, nil
}

// repoFlags are the connection flags shared by next and tags.
type repoFlags struct {
	repo  string
	token string
	pr    int
}

// apply lets explicitly given flags override cfg.
func (f repoFlags) apply(cfg *config.Config) {
	if f.repo != "" {
		cfg.Repository = f.repo
	}
	if f.token != "" {
		cfg.Token = f.token
	}
}
