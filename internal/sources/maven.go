package sources

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stacklok/artifact-sync/internal/config"
	"github.com/stacklok/artifact-sync/internal/digest"
	"github.com/stacklok/artifact-sync/internal/httpclient"
	"github.com/stacklok/artifact-sync/internal/versions"
)

const (
	// MavenMetadataFile is the repository metadata document name
	MavenMetadataFile = "maven-metadata.xml"

	// DefaultMavenHashAlgorithm is the sidecar algorithm when hashAlgo is unset
	DefaultMavenHashAlgorithm = digest.SHA1
)

// mavenMetadata is the subset of maven-metadata.xml the resolver reads
type mavenMetadata struct {
	XMLName    xml.Name `xml:"metadata"`
	Versioning struct {
		Versions         []string          `xml:"versions>version"`
		SnapshotVersions []snapshotVersion `xml:"snapshotVersions>snapshotVersion"`
	} `xml:"versioning"`
}

// snapshotVersion is one published file of a snapshot build
type snapshotVersion struct {
	Classifier string `xml:"classifier"`
	Extension  string `xml:"extension"`
	Value      string `xml:"value"`
	Updated    string `xml:"updated"`
}

// mavenResolver resolves the newest snapshot jar of a Maven artifact
type mavenResolver struct {
	client *httpclient.Client
}

// NewMavenResolver creates a new Maven resolver
func NewMavenResolver(client *httpclient.Client) Resolver {
	return &mavenResolver{client: client}
}

// Type returns the repository type
func (*mavenResolver) Type() string {
	return config.RepositoryTypeMaven
}

// Sync selects the greatest version in the artifact metadata, then the most
// recently updated plain jar of that version, and downloads it unless the
// local file already matches the published hash sidecar.
func (r *mavenResolver) Sync(ctx context.Context, item *config.ItemConfig, repo *config.RepositoryConfig) (*Result, error) {
	alg, err := digest.ParseAlgorithm(repo.Param(config.ParamHashAlgo, string(DefaultMavenHashAlgorithm)))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", config.ParamHashAlgo, err)
	}

	baseURL := httpclient.ResolveURL(repo, mavenPath(item.Source))
	artifactID := mavenArtifactID(item.Source)

	metadata, err := r.fetchMetadata(ctx, baseURL+"/"+MavenMetadataFile, repo)
	if err != nil {
		return nil, err
	}

	latest := versions.Latest(metadata.Versioning.Versions)
	if latest == "" {
		return nil, newResolutionError(r.Type(), item.Source, ErrNoVersion)
	}

	versionURL := baseURL + "/" + latest
	versionMetadata, err := r.fetchMetadata(ctx, versionURL+"/"+MavenMetadataFile, repo)
	if err != nil {
		return nil, err
	}

	snapshot, ok := latestJarSnapshot(versionMetadata.Versioning.SnapshotVersions)
	if !ok {
		return nil, newResolutionError(r.Type(), item.Source, fmt.Errorf("%w for version %s", ErrNoSnapshot, latest))
	}

	jarURL := fmt.Sprintf("%s/%s-%s.jar", versionURL, artifactID, snapshot.Value)
	hashURL := jarURL + "." + string(alg)

	slog.DebugContext(ctx, "Resolved Maven snapshot",
		"source", item.Source, "version", latest, "snapshot", snapshot.Value, "url", jarURL)

	sidecar, err := r.client.GetBytes(ctx, hashURL, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch hash sidecar: %w", err)
	}

	result, err := fetchIfDigestDiffers(ctx, r.client, jarURL, repo, item.Destination, alg, digest.Hex, sidecarDigest(sidecar))
	if err != nil {
		return nil, err
	}
	result.Version = snapshot.Value
	return result, nil
}

func (r *mavenResolver) fetchMetadata(ctx context.Context, url string, repo *config.RepositoryConfig) (*mavenMetadata, error) {
	body, err := r.client.GetBytes(ctx, url, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata: %w", err)
	}

	var metadata mavenMetadata
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", url, err)
	}
	return &metadata, nil
}

// mavenPath turns "group.id:artifact-id" into "group/id/artifact-id"
func mavenPath(source string) string {
	return strings.NewReplacer(":", "/", ".", "/").Replace(source)
}

// mavenArtifactID returns the part of source after the last colon
func mavenArtifactID(source string) string {
	if i := strings.LastIndex(source, ":"); i >= 0 {
		return source[i+1:]
	}
	return source
}

// latestJarSnapshot picks the jar without classifier with the greatest
// updated timestamp. Ties keep the entry listed first.
func latestJarSnapshot(snapshots []snapshotVersion) (snapshotVersion, bool) {
	var (
		best  snapshotVersion
		found bool
	)
	for _, s := range snapshots {
		if s.Extension != "jar" || s.Classifier != "" {
			continue
		}
		if !found || strings.Compare(best.Updated, s.Updated) < 0 {
			best, found = s, true
		}
	}
	return best, found
}

// sidecarDigest extracts the digest from a hash file, which may be followed
// by the file name as written by sha1sum
func sidecarDigest(sidecar []byte) string {
	fields := strings.Fields(string(sidecar))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
