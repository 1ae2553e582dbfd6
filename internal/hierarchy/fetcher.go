// Package hierarchy reads and writes the three-level quiz file tree:
// index.json → <folder>/main.json → <folder>/<theme file>.
package hierarchy

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/pigwin-3/historie-q/internal/storage"
)

// Fetcher returns the raw bytes of one hierarchy file. Every call must
// terminate: a missing file, a non-OK response or a transport error is
// returned as an error.
type Fetcher interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// FSFetcher reads from an fs.FS rooted at the hierarchy (os.DirFS("quiz")).
type FSFetcher struct {
	FS fs.FS
}

func (f FSFetcher) Fetch(_ context.Context, name string) ([]byte, error) {
	return fs.ReadFile(f.FS, path.Clean(name))
}

// BlobFetcher reads from a storage.BlobStore.
type BlobFetcher struct {
	Store storage.BlobStore
}

func (f BlobFetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	rc, err := f.Store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// HTTPFetcher resolves names against BaseURL.
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
}

const defaultFetchTimeout = 10 * time.Second

func NewHTTPFetcher(baseURL string, timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &HTTPFetcher{BaseURL: baseURL, Client: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	base, err := url.Parse(strings.TrimSuffix(f.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("base url: %w", err)
	}
	ref, err := url.Parse(escapePath(name))
	if err != nil {
		return nil, err
	}
	u := base.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	res, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return nil, fmt.Errorf("GET %s: %s", u, res.Status)
	}
	return io.ReadAll(res.Body)
}

func escapePath(name string) string {
	parts := strings.Split(strings.TrimPrefix(name, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
