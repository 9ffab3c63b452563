package sources

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/stacklok/artifact-sync/internal/config"
	"github.com/stacklok/artifact-sync/internal/digest"
	"github.com/stacklok/artifact-sync/internal/download"
	"github.com/stacklok/artifact-sync/internal/httpclient"
)

// headerDigest names the response header carrying a remote digest and how
// to read it
type headerDigest struct {
	header    string
	algorithm digest.Algorithm
	encoding  digest.Encoding
}

// withOverrides applies the digestHeader, digestAlgorithm and digestEncoding
// repository params on top of the resolver defaults
func (h headerDigest) withOverrides(repo *config.RepositoryConfig) (headerDigest, error) {
	h.header = repo.Param(config.ParamDigestHeader, h.header)

	alg, err := digest.ParseAlgorithm(repo.Param(config.ParamDigestAlgorithm, string(h.algorithm)))
	if err != nil {
		return h, err
	}
	enc, err := digest.ParseEncoding(repo.Param(config.ParamDigestEncoding, string(h.encoding)))
	if err != nil {
		return h, err
	}
	h.algorithm, h.encoding = alg, enc
	return h, nil
}

// ensureParent creates the destination's parent directory
func ensureParent(dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory of %s: %w", dest, err)
	}
	return nil
}

// fetchToFile downloads url into dest unconditionally
func fetchToFile(ctx context.Context, client *httpclient.Client, url string, repo *config.RepositoryConfig, dest string) (*Result, error) {
	if err := ensureParent(dest); err != nil {
		return nil, err
	}

	resp, err := client.Get(ctx, url, repo)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	n, err := download.Materialize(resp.Body, dest)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "Artifact downloaded", "url", url, "destination", dest, "bytes", n)
	return &Result{Action: ActionDownloaded, URL: url, Bytes: n}, nil
}

// fetchIfDigestDiffers downloads url into dest unless the local file already
// has the remote digest. No request for url is made when it does.
func fetchIfDigestDiffers(
	ctx context.Context,
	client *httpclient.Client,
	url string,
	repo *config.RepositoryConfig,
	dest string,
	alg digest.Algorithm,
	enc digest.Encoding,
	remote string,
) (*Result, error) {
	local, err := digest.File(dest, alg)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "Comparing digests",
		"destination", dest, "algorithm", alg, "local", local.Encode(enc), "remote", remote)

	if digest.Matches(local, remote, enc) {
		slog.InfoContext(ctx, "Hashes already match", "destination", dest)
		return &Result{Action: ActionUpToDate, URL: url, Digest: digest.Normalize(remote)}, nil
	}

	result, err := fetchToFile(ctx, client, url, repo, dest)
	if err != nil {
		return nil, err
	}
	result.Digest = digest.Normalize(remote)
	return result, nil
}

// fetchWithHeaderDigest downloads url into dest unless a response header
// already carries the local file's digest. An existing local file is first
// checked with a HEAD request; the GET response header is checked again so
// servers that omit the header on HEAD still avoid a rewrite. A 404 on HEAD
// ends the transfer without a GET.
func fetchWithHeaderDigest(
	ctx context.Context,
	client *httpclient.Client,
	url string,
	repo *config.RepositoryConfig,
	dest string,
	spec headerDigest,
) (*Result, error) {
	if err := ensureParent(dest); err != nil {
		return nil, err
	}

	local, err := digest.File(dest, spec.algorithm)
	if err != nil {
		return nil, err
	}

	if !local.Empty() {
		header, err := client.Head(ctx, url, repo)
		if httpclient.IsNotFound(err) {
			return nil, err
		}
		if err != nil {
			slog.DebugContext(ctx, "HEAD probe failed, falling back to GET", "url", url, "error", err)
		} else if remote := digest.Normalize(header.Get(spec.header)); digest.Matches(local, remote, spec.encoding) {
			slog.InfoContext(ctx, "Hashes already match", "destination", dest, "header", spec.header)
			return &Result{Action: ActionUpToDate, URL: url, Digest: remote}, nil
		}
	}

	resp, err := client.Get(ctx, url, repo)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	remote := digest.Normalize(resp.Header.Get(spec.header))
	slog.DebugContext(ctx, "Comparing digests",
		"destination", dest, "header", spec.header, "local", local.Encode(spec.encoding), "remote", remote)

	if digest.Matches(local, remote, spec.encoding) {
		slog.InfoContext(ctx, "Hashes already match", "destination", dest, "header", spec.header)
		return &Result{Action: ActionUpToDate, URL: url, Digest: remote}, nil
	}

	n, err := download.Materialize(resp.Body, dest)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "Artifact downloaded", "url", url, "destination", dest, "bytes", n)
	return &Result{Action: ActionDownloaded, URL: url, Bytes: n, Digest: remote}, nil
}
