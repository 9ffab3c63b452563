package sources

import (
	"context"
	"fmt"

	"github.com/stacklok/artifact-sync/internal/config"
	"github.com/stacklok/artifact-sync/internal/digest"
	"github.com/stacklok/artifact-sync/internal/httpclient"
)

// devBukkitDigest is the ETag dev.bukkit.org serves, a quoted hex MD5
var devBukkitDigest = headerDigest{
	header:    "ETag",
	algorithm: digest.MD5,
	encoding:  digest.Hex,
}

// devBukkitResolver downloads the latest file of a dev.bukkit.org project
type devBukkitResolver struct {
	client *httpclient.Client
}

// NewDevBukkitResolver creates a new dev.bukkit.org resolver
func NewDevBukkitResolver(client *httpclient.Client) Resolver {
	return &devBukkitResolver{client: client}
}

// Type returns the repository type
func (*devBukkitResolver) Type() string {
	return config.RepositoryTypeDevBukkit
}

// Sync downloads projects/{source}/files/latest unless its ETag matches the
// local file's MD5
func (r *devBukkitResolver) Sync(ctx context.Context, item *config.ItemConfig, repo *config.RepositoryConfig) (*Result, error) {
	spec, err := devBukkitDigest.withOverrides(repo)
	if err != nil {
		return nil, err
	}

	url := httpclient.ResolveURL(repo, fmt.Sprintf("projects/%s/files/latest", item.Source))
	return fetchWithHeaderDigest(ctx, r.client, url, repo, item.Destination, spec)
}
