package sources

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/artifact-sync/internal/config"
	"github.com/stacklok/artifact-sync/internal/httpclient"
)

const bukkitPath = "/projects/worldedit/files/latest"

func bukkitItem(dest string) *config.ItemConfig {
	return &config.ItemConfig{Repository: "bukkit", Source: "worldedit", Destination: dest}
}

func serveBukkit(f *fakeRemote, content string) {
	f.handle(bukkitPath, route{
		body:    content,
		headers: map[string]string{"ETag": `"` + md5Hex(content) + `"`},
	})
}

func TestDevBukkitResolver_Sync(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		local      string
		remote     string
		wantAction Action
		wantHeads  int
		wantGets   int
	}{
		{name: "missing file", remote: "we 7.3", wantAction: ActionDownloaded, wantGets: 1},
		{name: "matching file", local: "we 7.3", remote: "we 7.3", wantAction: ActionUpToDate, wantHeads: 1},
		{name: "stale file", local: "we 7.2", remote: "we 7.3", wantAction: ActionDownloaded, wantHeads: 1, wantGets: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFakeRemote(t)
			serveBukkit(f, tt.remote)

			dest := filepath.Join(t.TempDir(), "WorldEdit.jar")
			if tt.local != "" {
				writeFile(t, dest, tt.local)
			}

			result, err := NewDevBukkitResolver(newTestClient()).Sync(
				context.Background(), bukkitItem(dest), f.repo("dev_bukkit_org"))
			require.NoError(t, err)

			assert.Equal(t, tt.wantAction, result.Action)
			assert.Equal(t, md5Hex(tt.remote), result.Digest)
			assert.Equal(t, tt.remote, readFile(t, dest))
			assert.Equal(t, tt.wantHeads, f.count(http.MethodHead, bukkitPath))
			assert.Equal(t, tt.wantGets, f.count(http.MethodGet, bukkitPath))
		})
	}
}

func TestDevBukkitResolver_UppercaseETag(t *testing.T) {
	t.Parallel()

	f := newFakeRemote(t)
	f.handle(bukkitPath, route{
		body:    "content",
		headers: map[string]string{"ETag": `"` + strings.ToUpper(md5Hex("content")) + `"`},
	})

	dest := filepath.Join(t.TempDir(), "WorldEdit.jar")
	writeFile(t, dest, "content")

	result, err := NewDevBukkitResolver(newTestClient()).Sync(context.Background(), bukkitItem(dest), f.repo("dev_bukkit_org"))
	require.NoError(t, err)
	assert.Equal(t, ActionUpToDate, result.Action)
}

func TestDevBukkitResolver_InvalidOverride(t *testing.T) {
	t.Parallel()

	f := newFakeRemote(t)
	repo := f.repo("dev_bukkit_org")
	repo.Params = map[string]string{config.ParamDigestAlgorithm: "crc32"}

	_, err := NewDevBukkitResolver(newTestClient()).Sync(
		context.Background(), bukkitItem(filepath.Join(t.TempDir(), "x.jar")), repo)
	require.Error(t, err)
	assert.Zero(t, f.count(http.MethodGet, bukkitPath))
}

func TestDevBukkitResolver_NotFound(t *testing.T) {
	t.Parallel()

	f := newFakeRemote(t)
	dest := filepath.Join(t.TempDir(), "x.jar")

	_, err := NewDevBukkitResolver(newTestClient()).Sync(context.Background(), bukkitItem(dest), f.repo("dev_bukkit_org"))
	require.Error(t, err)
	assert.NoFileExists(t, dest)
}

func TestDevBukkitResolver_HeadNotFoundSkipsGet(t *testing.T) {
	t.Parallel()

	f := newFakeRemote(t)
	dest := filepath.Join(t.TempDir(), "WorldEdit.jar")
	writeFile(t, dest, "we 7.2")

	_, err := NewDevBukkitResolver(newTestClient()).Sync(context.Background(), bukkitItem(dest), f.repo("dev_bukkit_org"))
	require.Error(t, err)

	var httpErr *httpclient.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, 1, f.count(http.MethodHead, bukkitPath))
	assert.Zero(t, f.count(http.MethodGet, bukkitPath))
	assert.Equal(t, "we 7.2", readFile(t, dest))
}
