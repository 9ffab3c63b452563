package sources

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/stacklok/artifact-sync/internal/config"
	"github.com/stacklok/artifact-sync/internal/digest"
	"github.com/stacklok/artifact-sync/internal/httpclient"
)

// paperMCResolver downloads the newest build of a PaperMC project version
type paperMCResolver struct {
	client *httpclient.Client
}

// NewPaperMCResolver creates a new PaperMC builds API resolver
func NewPaperMCResolver(client *httpclient.Client) Resolver {
	return &paperMCResolver{client: client}
}

// Type returns the repository type
func (*paperMCResolver) Type() string {
	return config.RepositoryTypePaperMC
}

// Sync lists projects/{source}/versions/{version}/builds, picks the highest
// build number and downloads its named download variant unless the local
// file already has the listed sha256
func (r *paperMCResolver) Sync(ctx context.Context, item *config.ItemConfig, repo *config.RepositoryConfig) (*Result, error) {
	version := item.Param(config.ParamVersion, "")
	variant := item.Param(config.ParamDownload, "")
	if version == "" || variant == "" {
		return nil, fmt.Errorf("%s and %s params are required", config.ParamVersion, config.ParamDownload)
	}

	buildsURL := httpclient.ResolveURL(repo, fmt.Sprintf("projects/%s/versions/%s/builds", item.Source, version))
	body, err := r.client.GetBytes(ctx, buildsURL, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch builds: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON from %s", buildsURL)
	}

	var (
		latest gjson.Result
		found  bool
	)
	gjson.GetBytes(body, "builds").ForEach(func(_, build gjson.Result) bool {
		if !found || build.Get("build").Int() > latest.Get("build").Int() {
			latest, found = build, true
		}
		return true
	})
	if !found {
		return nil, newResolutionError(r.Type(), item.Source, ErrNoBuild)
	}

	buildID := latest.Get("build").String()
	download := latest.Get("downloads." + gjson.Escape(variant))
	name := download.Get("name").String()
	if !download.Exists() || name == "" {
		return nil, newResolutionError(r.Type(), item.Source,
			fmt.Errorf("%w: build %s has no %q download", ErrNoDownload, buildID, variant))
	}

	downloadURL := fmt.Sprintf("%s/%s/downloads/%s", buildsURL, buildID, name)
	result, err := fetchIfDigestDiffers(ctx, r.client, downloadURL, repo, item.Destination,
		digest.SHA256, digest.Hex, download.Get("sha256").String())
	if err != nil {
		return nil, err
	}
	result.Version = buildID
	return result, nil
}
