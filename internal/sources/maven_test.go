package sources

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/artifact-sync/internal/config"
	"github.com/stacklok/artifact-sync/internal/httpclient"
)

const widgetBase = "/org/example/widget"

func artifactMetadata(versions ...string) string {
	body := "<metadata><groupId>org.example</groupId><artifactId>widget</artifactId><versioning><versions>"
	for _, v := range versions {
		body += "<version>" + v + "</version>"
	}
	return body + "</versions></versioning></metadata>"
}

type testSnapshot struct {
	classifier, extension, value, updated string
}

func versionMetadata(snapshots ...testSnapshot) string {
	body := `<?xml version="1.0" encoding="UTF-8"?><metadata><versioning><snapshotVersions>`
	for _, s := range snapshots {
		body += "<snapshotVersion>"
		if s.classifier != "" {
			body += "<classifier>" + s.classifier + "</classifier>"
		}
		body += fmt.Sprintf("<extension>%s</extension><value>%s</value><updated>%s</updated>", s.extension, s.value, s.updated)
		body += "</snapshotVersion>"
	}
	return body + "</snapshotVersions></versioning></metadata>"
}

// serveWidget publishes org.example:widget with the given versions; the
// greatest one carries the snapshots
func serveWidget(f *fakeRemote, latest string, versions []string, snapshots []testSnapshot) {
	f.handle(widgetBase+"/maven-metadata.xml", route{body: artifactMetadata(versions...)})
	f.handle(widgetBase+"/"+latest+"/maven-metadata.xml", route{body: versionMetadata(snapshots...)})
}

func serveJar(f *fakeRemote, version, value, content string) string {
	jarPath := fmt.Sprintf("%s/%s/widget-%s.jar", widgetBase, version, value)
	f.handle(jarPath, route{body: content})
	f.handle(jarPath+".sha1", route{body: sha1Hex(content)})
	return jarPath
}

func widgetItem(dest string) *config.ItemConfig {
	return &config.ItemConfig{Repository: "maven", Source: "org.example:widget", Destination: dest}
}

func TestMavenResolver_SelectsGreatestVersionAndNewestJar(t *testing.T) {
	t.Parallel()

	f := newFakeRemote(t)
	serveWidget(f, "1.2", []string{"1.0", "1.2", "1.1"}, []testSnapshot{
		{extension: "jar", value: "1.2-20230101.1-1", updated: "20230101.1"},
		{extension: "jar", value: "1.2-20230102.2-2", updated: "20230102.2"},
		{classifier: "sources", extension: "jar", value: "1.2-20230103.1-3", updated: "20230103.1"},
		{extension: "pom", value: "1.2-20230104.1-4", updated: "20230104.1"},
	})
	jarPath := serveJar(f, "1.2", "1.2-20230102.2-2", "newest jar")

	dest := filepath.Join(t.TempDir(), "plugins", "Widget.jar")
	result, err := NewMavenResolver(newTestClient()).Sync(context.Background(), widgetItem(dest), f.repo("maven"))
	require.NoError(t, err)

	assert.Equal(t, ActionDownloaded, result.Action)
	assert.Equal(t, "1.2-20230102.2-2", result.Version)
	assert.Equal(t, f.url(jarPath), result.URL)
	assert.Equal(t, int64(len("newest jar")), result.Bytes)
	assert.Equal(t, "newest jar", readFile(t, dest))
	assert.Equal(t, 1, f.count(http.MethodGet, jarPath))
}

func TestMavenResolver_DigestMatchSkipsDownload(t *testing.T) {
	t.Parallel()

	f := newFakeRemote(t)
	serveWidget(f, "1.2", []string{"1.2"}, []testSnapshot{
		{extension: "jar", value: "1.2-20230102.2-2", updated: "20230102.2"},
	})
	jarPath := serveJar(f, "1.2", "1.2-20230102.2-2", "current jar")

	dest := filepath.Join(t.TempDir(), "Widget.jar")
	writeFile(t, dest, "current jar")

	result, err := NewMavenResolver(newTestClient()).Sync(context.Background(), widgetItem(dest), f.repo("maven"))
	require.NoError(t, err)

	assert.Equal(t, ActionUpToDate, result.Action)
	assert.Equal(t, sha1Hex("current jar"), result.Digest)
	assert.Zero(t, f.count(http.MethodGet, jarPath))
	assert.Zero(t, f.count(http.MethodHead, jarPath))
	assert.Equal(t, 1, f.count(http.MethodGet, jarPath+".sha1"))
}

func TestMavenResolver_EndToEnd(t *testing.T) {
	t.Parallel()

	f := newFakeRemote(t)
	serveWidget(f, "2.0", []string{"1.0", "2.0"}, []testSnapshot{
		{extension: "jar", value: "2.0-20240301.120000-7", updated: "20240301120000"},
	})
	jarPath := serveJar(f, "2.0", "2.0-20240301.120000-7", "widget bytes")

	resolver := NewMavenResolver(newTestClient())
	repo := f.repo("maven")
	dest := filepath.Join(t.TempDir(), "plugins", "Widget.jar")

	first, err := resolver.Sync(context.Background(), widgetItem(dest), repo)
	require.NoError(t, err)
	assert.Equal(t, ActionDownloaded, first.Action)
	assert.Equal(t, "widget bytes", readFile(t, dest))
	assert.Equal(t, f.url("/org/example/widget/2.0/widget-2.0-20240301.120000-7.jar"), first.URL)

	second, err := resolver.Sync(context.Background(), widgetItem(dest), repo)
	require.NoError(t, err)
	assert.Equal(t, ActionUpToDate, second.Action)
	assert.Equal(t, 1, f.count(http.MethodGet, jarPath), "second run must not download")
}

func TestMavenResolver_HashAlgoAndSidecarFormat(t *testing.T) {
	t.Parallel()

	f := newFakeRemote(t)
	serveWidget(f, "1.0", []string{"1.0"}, []testSnapshot{
		{extension: "jar", value: "1.0-1", updated: "1"},
	})
	jarPath := widgetBase + "/1.0/widget-1.0-1.jar"
	f.handle(jarPath, route{body: "jar"})
	f.handle(jarPath+".sha256", route{body: sha256Hex("jar") + "  widget-1.0-1.jar\n"})

	repo := f.repo("maven")
	repo.Params = map[string]string{config.ParamHashAlgo: "sha256"}

	dest := filepath.Join(t.TempDir(), "Widget.jar")
	writeFile(t, dest, "jar")

	result, err := NewMavenResolver(newTestClient()).Sync(context.Background(), widgetItem(dest), repo)
	require.NoError(t, err)
	assert.Equal(t, ActionUpToDate, result.Action)
	assert.Zero(t, f.count(http.MethodGet, jarPath))
	assert.Zero(t, f.count(http.MethodGet, jarPath+".sha1"))
}

func TestMavenResolver_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		setup      func(f *fakeRemote)
		wantReason error
		wantStatus int
	}{
		{
			name: "no versions",
			setup: func(f *fakeRemote) {
				f.handle(widgetBase+"/maven-metadata.xml", route{body: artifactMetadata()})
			},
			wantReason: ErrNoVersion,
		},
		{
			name: "no plain jar snapshot",
			setup: func(f *fakeRemote) {
				serveWidget(f, "1.0", []string{"1.0"}, []testSnapshot{
					{classifier: "javadoc", extension: "jar", value: "1.0-1", updated: "1"},
					{extension: "pom", value: "1.0-1", updated: "1"},
				})
			},
			wantReason: ErrNoSnapshot,
		},
		{
			name:       "metadata missing",
			setup:      func(*fakeRemote) {},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "sidecar missing",
			setup: func(f *fakeRemote) {
				serveWidget(f, "1.0", []string{"1.0"}, []testSnapshot{{extension: "jar", value: "1.0-1", updated: "1"}})
				f.handle(widgetBase+"/1.0/widget-1.0-1.jar", route{body: "jar"})
			},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFakeRemote(t)
			tt.setup(f)

			dest := filepath.Join(t.TempDir(), "Widget.jar")
			_, err := NewMavenResolver(newTestClient()).Sync(context.Background(), widgetItem(dest), f.repo("maven"))
			require.Error(t, err)

			if tt.wantReason != nil {
				var resErr *ResolutionError
				require.ErrorAs(t, err, &resErr)
				assert.Equal(t, "maven", resErr.Resolver)
				assert.Equal(t, "org.example:widget", resErr.Source)
				assert.ErrorIs(t, err, tt.wantReason)
			}
			if tt.wantStatus != 0 {
				var httpErr *httpclient.HTTPError
				require.ErrorAs(t, err, &httpErr)
				assert.Equal(t, tt.wantStatus, httpErr.StatusCode)
			}
			assert.NoFileExists(t, dest)
		})
	}
}

func TestMavenResolver_SendsAuthorization(t *testing.T) {
	t.Parallel()

	f := newFakeRemote(t)
	serveWidget(f, "1.0", []string{"1.0"}, []testSnapshot{{extension: "jar", value: "1.0-1", updated: "1"}})
	serveJar(f, "1.0", "1.0-1", "jar")

	repo := f.repo("maven")
	repo.Auth = &config.AuthConfig{Username: "pat", Password: "secret"}

	_, err := NewMavenResolver(newTestClient()).Sync(context.Background(), widgetItem(filepath.Join(t.TempDir(), "w.jar")), repo)
	require.NoError(t, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.auth)
	for _, got := range f.auth {
		assert.Equal(t, "Basic cGF0OnNlY3JldA==", got)
	}
}

func TestMavenPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "net/doridian/foxbukkit/foxbukkit-chat", mavenPath("net.doridian.foxbukkit:foxbukkit-chat"))
	assert.Equal(t, "foxbukkit-chat", mavenArtifactID("net.doridian.foxbukkit:foxbukkit-chat"))
	assert.Equal(t, "plain", mavenArtifactID("plain"))
}

func TestLatestJarSnapshot(t *testing.T) {
	t.Parallel()

	t.Run("ties keep the first entry", func(t *testing.T) {
		t.Parallel()
		got, ok := latestJarSnapshot([]snapshotVersion{
			{Extension: "jar", Value: "first", Updated: "20230102"},
			{Extension: "jar", Value: "second", Updated: "20230102"},
		})
		require.True(t, ok)
		assert.Equal(t, "first", got.Value)
	})

	t.Run("none", func(t *testing.T) {
		t.Parallel()
		_, ok := latestJarSnapshot([]snapshotVersion{{Extension: "pom"}})
		assert.False(t, ok)
	})
}

func TestSidecarDigest(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", sidecarDigest([]byte("abc\n")))
	assert.Equal(t, "abc", sidecarDigest([]byte("  abc  widget.jar\n")))
	assert.Equal(t, "", sidecarDigest([]byte("\n")))
}
