package sources

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/stacklok/artifact-sync/internal/config"
	"github.com/stacklok/artifact-sync/internal/git"
	"github.com/stacklok/artifact-sync/internal/httpclient"
)

// gitResolver keeps a working tree at the tip of a remote branch
type gitResolver struct {
	gitClient git.Client
}

// NewGitResolver creates a new git resolver
func NewGitResolver(gitClient git.Client) Resolver {
	return &gitResolver{gitClient: gitClient}
}

// Type returns the repository type
func (*gitResolver) Type() string {
	return config.RepositoryTypeGit
}

// Sync fetches the configured branch (default main) from repository URL +
// source and hard-resets the destination working tree to it
func (r *gitResolver) Sync(ctx context.Context, item *config.ItemConfig, repo *config.RepositoryConfig) (*Result, error) {
	auth, err := gitAuth(repo)
	if err != nil {
		return nil, err
	}

	url := httpclient.ResolveURL(repo, item.Source)
	res, err := r.gitClient.Sync(ctx, &git.SyncConfig{
		URL:       url,
		Branch:    item.Param(config.ParamBranch, git.DefaultBranch),
		Directory: item.Destination,
		Auth:      auth,
	})
	if err != nil {
		return nil, fmt.Errorf("git sync of %s failed: %w", url, err)
	}

	action := ActionSynced
	if !res.Changed() {
		action = ActionUpToDate
	}
	return &Result{Action: action, URL: url, Version: res.Commit}, nil
}

// gitAuth translates repository credentials into git transport credentials.
// A raw Authorization header is understood in its Bearer and Basic forms.
func gitAuth(repo *config.RepositoryConfig) (*git.AuthConfig, error) {
	if repo.Auth != nil {
		password, err := repo.Auth.GetPassword()
		if err != nil {
			return nil, err
		}
		return &git.AuthConfig{Username: repo.Auth.Username, Password: password}, nil
	}

	scheme, value, _ := strings.Cut(repo.Authorization, " ")
	switch strings.ToLower(scheme) {
	case "":
		return nil, nil
	case "bearer", "token":
		return &git.AuthConfig{Token: value}, nil
	case "basic":
		decoded, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return nil, fmt.Errorf("invalid basic authorization: %w", err)
		}
		user, password, _ := strings.Cut(string(decoded), ":")
		return &git.AuthConfig{Username: user, Password: password}, nil
	default:
		return nil, fmt.Errorf("unsupported authorization scheme for git: %s", scheme)
	}
}
