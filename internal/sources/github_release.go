package sources

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/stacklok/artifact-sync/internal/config"
	"github.com/stacklok/artifact-sync/internal/digest"
	"github.com/stacklok/artifact-sync/internal/httpclient"
)

// githubReleaseDigest is the Content-MD5 header GitHub asset downloads carry
var githubReleaseDigest = headerDigest{
	header:    "Content-MD5",
	algorithm: digest.MD5,
	encoding:  digest.Base64,
}

// githubReleaseResolver downloads an asset of the latest GitHub release
type githubReleaseResolver struct {
	client *httpclient.Client
}

// NewGitHubReleaseResolver creates a new GitHub release resolver
func NewGitHubReleaseResolver(client *httpclient.Client) Resolver {
	return &githubReleaseResolver{client: client}
}

// Type returns the repository type
func (*githubReleaseResolver) Type() string {
	return config.RepositoryTypeGitHubRelease
}

// Sync reads repos/{source}/releases/latest and downloads the asset named by
// the assetName (or asset) param, or the first asset when neither is set
func (r *githubReleaseResolver) Sync(ctx context.Context, item *config.ItemConfig, repo *config.RepositoryConfig) (*Result, error) {
	spec, err := githubReleaseDigest.withOverrides(repo)
	if err != nil {
		return nil, err
	}

	releaseURL := httpclient.ResolveURL(repo, fmt.Sprintf("repos/%s/releases/latest", item.Source))
	body, err := r.client.GetBytes(ctx, releaseURL, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest release: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON from %s", releaseURL)
	}

	release := gjson.ParseBytes(body)
	wanted := item.Param(config.ParamAssetName, item.Param(config.ParamAsset, ""))

	var downloadURL string
	release.Get("assets").ForEach(func(_, asset gjson.Result) bool {
		if wanted == "" || asset.Get("name").String() == wanted {
			downloadURL = asset.Get("browser_download_url").String()
			return false
		}
		return true
	})
	if downloadURL == "" {
		reason := ErrNoAsset
		if wanted != "" {
			reason = fmt.Errorf("%w named %q", ErrNoAsset, wanted)
		}
		return nil, newResolutionError(r.Type(), item.Source, reason)
	}

	result, err := fetchWithHeaderDigest(ctx, r.client, downloadURL, repo, item.Destination, spec)
	if err != nil {
		return nil, err
	}
	result.Version = release.Get("tag_name").String()
	return result, nil
}
