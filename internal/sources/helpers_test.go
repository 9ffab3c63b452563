package sources

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stacklok/artifact-sync/internal/config"
	"github.com/stacklok/artifact-sync/internal/httpclient"
)

// route is one canned response of a fakeRemote
type route struct {
	status  int
	body    string
	headers map[string]string
}

// fakeRemote serves canned responses and counts requests per method and path
type fakeRemote struct {
	t      *testing.T
	server *httptest.Server

	mu     sync.Mutex
	routes map[string]route
	hits   map[string]int
	auth   []string
}

func newFakeRemote(t *testing.T) *fakeRemote {
	t.Helper()

	f := &fakeRemote{
		t:      t,
		routes: map[string]route{},
		hits:   map[string]int{},
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	f.server.Config.SetKeepAlivesEnabled(false)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeRemote) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.hits[r.Method+" "+r.URL.Path]++
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	rt, ok := f.routes[r.URL.Path]
	f.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	for k, v := range rt.headers {
		w.Header().Set(k, v)
	}
	status := rt.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		_, _ = io.WriteString(w, rt.body)
	}
}

// handle registers a response for path
func (f *fakeRemote) handle(path string, rt route) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[path] = rt
}

// count returns how many requests with method hit path
func (f *fakeRemote) count(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[method+" "+path]
}

// url returns the absolute URL of path
func (f *fakeRemote) url(path string) string {
	return f.server.URL + path
}

// repo returns a repository descriptor pointing at the fake remote
func (f *fakeRemote) repo(repoType string) *config.RepositoryConfig {
	return &config.RepositoryConfig{Type: repoType, URL: f.server.URL + "/"}
}

func newTestClient() *httpclient.Client {
	return httpclient.NewClient()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s)) //nolint:gosec // test fixture digests
	return hex.EncodeToString(sum[:])
}

func md5Base64(s string) string {
	sum := md5.Sum([]byte(s)) //nolint:gosec // test fixture digests
	return base64.StdEncoding.EncodeToString(sum[:])
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s)) //nolint:gosec // test fixture digests
	return hex.EncodeToString(sum[:])
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
