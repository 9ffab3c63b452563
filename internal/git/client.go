// Package git keeps an on-disk working tree identical to the tip of one
// remote branch.
package git

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

const (
	// DefaultBranch is used when no branch is configured
	DefaultBranch = "main"

	// RemoteName is the remote every synced working tree tracks
	RemoteName = "origin"
)

// Client defines the interface for Git operations
type Client interface {
	// Sync makes the working tree at config.Directory match the remote branch tip,
	// initializing the repository on first use.
	Sync(ctx context.Context, config *SyncConfig) (*SyncResult, error)
}

// SyncConfig describes one working tree to keep in sync
type SyncConfig struct {
	// URL is the remote repository URL or local path
	URL string

	// Branch is the remote branch to track; defaults to DefaultBranch
	Branch string

	// Directory is the working tree location
	Directory string

	// Auth holds optional credentials
	Auth *AuthConfig
}

// AuthConfig holds credentials for HTTP remotes. Token takes precedence.
type AuthConfig struct {
	Username string
	Password string
	Token    string
}

// SyncResult describes what a sync did
type SyncResult struct {
	// Commit is the hash the working tree now points at
	Commit string

	// Previous is the hash HEAD pointed at before, empty for a new repository
	Previous string

	// Initialized is true when the repository was created by this sync
	Initialized bool
}

// Changed reports whether HEAD moved
func (r *SyncResult) Changed() bool {
	return r.Commit != r.Previous
}

// defaultGitClient implements Client using go-git
type defaultGitClient struct{}

// NewDefaultGitClient creates a new defaultGitClient
func NewDefaultGitClient() Client {
	return &defaultGitClient{}
}

// Sync initializes or opens the repository, points origin at config.URL,
// fetches the branch and hard-resets the working tree to it. Untracked files
// are left alone.
func (*defaultGitClient) Sync(ctx context.Context, config *SyncConfig) (*SyncResult, error) {
	if config == nil || config.URL == "" || config.Directory == "" {
		return nil, fmt.Errorf("url and directory are required")
	}
	branch := config.Branch
	if branch == "" {
		branch = DefaultBranch
	}

	repo, initialized, err := openOrInit(config.Directory)
	if err != nil {
		return nil, err
	}

	if err := ensureRemote(repo, config.URL); err != nil {
		return nil, err
	}

	result := &SyncResult{Initialized: initialized}
	if head, err := repo.Head(); err == nil {
		result.Previous = head.Hash().String()
	}

	refSpec := gitconfig.RefSpec(fmt.Sprintf("+refs/heads/%s:refs/remotes/%s/%s", branch, RemoteName, branch))
	err = repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: RemoteName,
		RefSpecs:   []gitconfig.RefSpec{refSpec},
		Auth:       config.Auth.method(),
		Force:      true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil, fmt.Errorf("failed to fetch %s from %s: %w", branch, config.URL, err)
	}

	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName(RemoteName, branch), true)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s/%s: %w", RemoteName, branch, err)
	}

	// Point the local branch and HEAD at the fetched tip before resetting so
	// that an unborn HEAD in a fresh repository resolves.
	localRef := plumbing.NewBranchReferenceName(branch)
	if err := repo.Storer.SetReference(plumbing.NewHashReference(localRef, remoteRef.Hash())); err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", localRef, err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, localRef)); err != nil {
		return nil, fmt.Errorf("failed to update HEAD: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	// go-git's hard reset also removes files missing from the index, so they
	// are moved under .git for the duration of the reset.
	stash, err := stashUntracked(repo, config.Directory)
	if err != nil {
		return nil, err
	}
	resetErr := worktree.Reset(&git.ResetOptions{Commit: remoteRef.Hash(), Mode: git.HardReset})
	if err := stash.restore(ctx); err != nil {
		return nil, err
	}
	if resetErr != nil {
		return nil, fmt.Errorf("failed to reset to %s: %w", remoteRef.Hash(), resetErr)
	}

	result.Commit = remoteRef.Hash().String()

	slog.DebugContext(ctx, "Git working tree synced",
		"directory", config.Directory,
		"branch", branch,
		"commit", result.Commit,
		"initialized", initialized,
	)

	return result, nil
}

// untrackedStash holds files moved out of the working tree during a reset
type untrackedStash struct {
	worktreeDir string
	dir         string
	paths       []string
}

// stashUntracked moves every file of dir that the index does not list into a
// temporary directory inside .git. Ignored files count as untracked.
func stashUntracked(repo *git.Repository, dir string) (*untrackedStash, error) {
	idx, err := repo.Storer.Index()
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	tracked := make(map[string]struct{}, len(idx.Entries))
	for _, entry := range idx.Entries {
		tracked[entry.Name] = struct{}{}
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if rel == git.GitDirName {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := tracked[filepath.ToSlash(rel)]; !ok {
			paths = append(paths, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	stash := &untrackedStash{worktreeDir: dir, paths: paths}
	if len(paths) == 0 {
		return stash, nil
	}

	stash.dir, err = os.MkdirTemp(filepath.Join(dir, git.GitDirName), "untracked-")
	if err != nil {
		return nil, fmt.Errorf("failed to create stash directory: %w", err)
	}
	for i, rel := range paths {
		target := filepath.Join(stash.dir, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			stash.paths = paths[:i]
			return nil, errors.Join(fmt.Errorf("failed to stash %s: %w", rel, err), stash.restore(context.Background()))
		}
		if err := os.Rename(filepath.Join(dir, rel), target); err != nil {
			stash.paths = paths[:i]
			return nil, errors.Join(fmt.Errorf("failed to stash %s: %w", rel, err), stash.restore(context.Background()))
		}
	}
	return stash, nil
}

// restore moves stashed files back. A file whose path is now occupied by the
// checked out tree is dropped, as git reset --hard would overwrite it.
func (s *untrackedStash) restore(ctx context.Context) error {
	if s.dir == "" {
		return nil
	}

	var errs []error
	for _, rel := range s.paths {
		dest := filepath.Join(s.worktreeDir, rel)
		if _, err := os.Lstat(dest); err == nil {
			slog.DebugContext(ctx, "Untracked file replaced by tracked content", "path", rel)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			errs = append(errs, fmt.Errorf("failed to restore %s: %w", rel, err))
			continue
		}
		if err := os.Rename(filepath.Join(s.dir, rel), dest); err != nil {
			errs = append(errs, fmt.Errorf("failed to restore %s: %w", rel, err))
		}
	}
	if len(errs) > 0 {
		// keep the stash so nothing is lost
		return fmt.Errorf("untracked files left in %s: %w", s.dir, errors.Join(errs...))
	}
	if err := os.RemoveAll(s.dir); err != nil {
		slog.WarnContext(ctx, "Failed to remove stash directory", "path", s.dir, "error", err)
	}
	return nil
}

// openOrInit opens the repository at dir or creates it
func openOrInit(dir string) (*git.Repository, bool, error) {
	repo, err := git.PlainOpen(dir)
	if err == nil {
		return repo, false, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, false, fmt.Errorf("failed to open repository at %s: %w", dir, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, false, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	repo, err = git.PlainInit(dir, false)
	if err != nil {
		return nil, false, fmt.Errorf("failed to init repository at %s: %w", dir, err)
	}
	return repo, true, nil
}

// ensureRemote creates origin or updates its URL when it differs
func ensureRemote(repo *git.Repository, url string) error {
	cfg, err := repo.Config()
	if err != nil {
		return fmt.Errorf("failed to read repository config: %w", err)
	}

	remote, ok := cfg.Remotes[RemoteName]
	if !ok {
		_, err := repo.CreateRemote(&gitconfig.RemoteConfig{
			Name: RemoteName,
			URLs: []string{url},
		})
		if err != nil {
			return fmt.Errorf("failed to add remote %s: %w", RemoteName, err)
		}
		return nil
	}

	if len(remote.URLs) == 1 && remote.URLs[0] == url {
		return nil
	}
	remote.URLs = []string{url}
	if err := repo.SetConfig(cfg); err != nil {
		return fmt.Errorf("failed to set remote %s url: %w", RemoteName, err)
	}
	return nil
}

func (a *AuthConfig) method() transport.AuthMethod {
	switch {
	case a == nil:
		return nil
	case a.Token != "":
		return &githttp.TokenAuth{Token: a.Token}
	case a.Username != "":
		return &githttp.BasicAuth{Username: a.Username, Password: a.Password}
	default:
		return nil
	}
}
