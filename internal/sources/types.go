package sources

import (
	"context"

	"github.com/stacklok/artifact-sync/internal/config"
)

//go:generate mockgen -destination=mocks/mock_resolver.go -package=mocks -source=types.go Resolver,ResolverFactory

// Action describes what a sync did to its destination
type Action string

const (
	// ActionDownloaded means a new file was materialized
	ActionDownloaded Action = "downloaded"

	// ActionUpToDate means the local digest matched and nothing was transferred
	ActionUpToDate Action = "up-to-date"

	// ActionSynced means a git working tree was fetched and reset
	ActionSynced Action = "synced"
)

// Resolver brings one item's destination in line with its repository
type Resolver interface {
	// Sync resolves the latest artifact for item and updates item.Destination.
	// The destination must already be an absolute or root-relative path.
	Sync(ctx context.Context, item *config.ItemConfig, repo *config.RepositoryConfig) (*Result, error)

	// Type returns the repository type the resolver serves
	Type() string
}

// Result contains the outcome of a sync
type Result struct {
	// Action is what happened to the destination
	Action Action

	// URL is the artifact URL or git remote that was resolved
	URL string

	// Version identifies what was resolved: a snapshot value, release tag,
	// build number or commit hash. Empty when the remote exposes none.
	Version string

	// Bytes is the size written for ActionDownloaded
	Bytes int64

	// Digest is the remote digest the local file was compared against, if any
	Digest string
}

// ResolverFactory creates resolvers based on repository type
type ResolverFactory interface {
	// CreateResolver creates a resolver for the given repository type
	CreateResolver(repoType string) (Resolver, error)
}
