package sources

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/stacklok/artifact-sync/internal/config"
	"github.com/stacklok/artifact-sync/internal/httpclient"
)

// jenkinsArtifactResolver downloads an artifact of a job's last successful build
type jenkinsArtifactResolver struct {
	client *httpclient.Client
}

// NewJenkinsArtifactResolver creates a new Jenkins artifact resolver
func NewJenkinsArtifactResolver(client *httpclient.Client) Resolver {
	return &jenkinsArtifactResolver{client: client}
}

// Type returns the repository type
func (*jenkinsArtifactResolver) Type() string {
	return config.RepositoryTypeJenkinsArtifact
}

// Sync downloads the first artifact of {source}/lastSuccessfulBuild whose
// file name matches artifactRegex. Jenkins exposes no content digest, so the
// artifact is always downloaded.
func (r *jenkinsArtifactResolver) Sync(ctx context.Context, item *config.ItemConfig, repo *config.RepositoryConfig) (*Result, error) {
	matcher, err := regexp.Compile(item.Param(config.ParamArtifactRegex, ""))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", config.ParamArtifactRegex, err)
	}

	buildURL := httpclient.ResolveURL(repo, strings.TrimSuffix(item.Source, "/")+"/lastSuccessfulBuild")
	body, err := r.client.GetBytes(ctx, buildURL+"/api/json", repo)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch last successful build: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON from %s/api/json", buildURL)
	}

	build := gjson.ParseBytes(body)

	var relativePath string
	build.Get("artifacts").ForEach(func(_, artifact gjson.Result) bool {
		if matcher.MatchString(artifact.Get("fileName").String()) {
			relativePath = artifact.Get("relativePath").String()
			return false
		}
		return true
	})
	if relativePath == "" {
		return nil, newResolutionError(r.Type(), item.Source,
			fmt.Errorf("%w matching %q", ErrNoArtifact, matcher.String()))
	}

	result, err := fetchToFile(ctx, r.client, buildURL+"/artifact/"+relativePath, repo, item.Destination)
	if err != nil {
		return nil, err
	}
	result.Version = build.Get("number").String()
	return result, nil
}
