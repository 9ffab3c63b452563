package sources

import (
	"github.com/stacklok/artifact-sync/internal/config"
	"github.com/stacklok/artifact-sync/internal/git"
	"github.com/stacklok/artifact-sync/internal/httpclient"
)

// Dependencies are the long-lived clients shared by every resolver
type Dependencies struct {
	// HTTP performs all metadata and artifact requests
	HTTP *httpclient.Client

	// Git syncs working trees for the git resolver
	Git git.Client
}

// defaultResolverFactory is the default implementation of ResolverFactory
type defaultResolverFactory struct {
	deps Dependencies
}

var _ ResolverFactory = (*defaultResolverFactory)(nil)

// NewResolverFactory creates a new resolver factory. Missing dependencies are
// replaced with defaults.
func NewResolverFactory(deps Dependencies) ResolverFactory {
	if deps.HTTP == nil {
		deps.HTTP = httpclient.NewClient()
	}
	if deps.Git == nil {
		deps.Git = git.NewDefaultGitClient()
	}
	return &defaultResolverFactory{deps: deps}
}

// CreateResolver creates a resolver for the given repository type
func (f *defaultResolverFactory) CreateResolver(repoType string) (Resolver, error) {
	switch repoType {
	case config.RepositoryTypeMaven:
		return NewMavenResolver(f.deps.HTTP), nil
	case config.RepositoryTypeGit:
		return NewGitResolver(f.deps.Git), nil
	case config.RepositoryTypeGitHubRelease:
		return NewGitHubReleaseResolver(f.deps.HTTP), nil
	case config.RepositoryTypeJenkinsArtifact:
		return NewJenkinsArtifactResolver(f.deps.HTTP), nil
	case config.RepositoryTypePaperMC:
		return NewPaperMCResolver(f.deps.HTTP), nil
	case config.RepositoryTypeDevBukkit:
		return NewDevBukkitResolver(f.deps.HTTP), nil
	default:
		return nil, &UnknownRepositoryTypeError{Type: repoType}
	}
}
