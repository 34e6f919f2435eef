// Package upload moves a local image reference into remote blob storage and
// returns its public download URL.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// ErrNetworkRequestFailed is returned when the local reference can't be read
// as a blob. It matches the failure the platform reports for a broken fetch.
var ErrNetworkRequestFailed = errors.New("network request failed")

// Blob is an opaque binary object fetched from a reference. The caller must
// close Body.
type Blob struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64 // -1 when unknown
}

// Fetcher reads the bytes behind an image reference.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (*Blob, error)
}

// HTTPFetcher fetches file://, http:// and https:// references with a single
// http.Client. file:// is served by a file transport rooted at "/".
type HTTPFetcher struct {
	client *http.Client
}

// NewFetcher creates a fetcher with the given overall request timeout
// (0 = none).
func NewFetcher(timeout time.Duration) *HTTPFetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.RegisterProtocol("file", http.NewFileTransport(http.Dir("/")))
	return &HTTPFetcher{
		client: &http.Client{Transport: transport, Timeout: timeout},
	}
}

// NewFetcherWithClient creates a fetcher using the given client. The client
// must handle every scheme it will be asked for.
func NewFetcherWithClient(client *http.Client) *HTTPFetcher {
	return &HTTPFetcher{client: client}
}

// NormalizeRef turns a bare absolute path into a file:// URL and leaves other
// references untouched.
func NormalizeRef(ref string) string {
	if strings.HasPrefix(ref, "/") {
		return (&url.URL{Scheme: "file", Path: ref}).String()
	}
	return ref
}

// Fetch opens the reference. Every failure wraps ErrNetworkRequestFailed.
func (f *HTTPFetcher) Fetch(ctx context.Context, uri string) (*Blob, error) {
	uri = NormalizeRef(uri)
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkRequestFailed, err)
	}

	switch u.Scheme {
	case "file":
		info, err := os.Stat(u.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNetworkRequestFailed, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%w: %s is a directory", ErrNetworkRequestFailed, u.Path)
		}
	case "http", "https":
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrNetworkRequestFailed, u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkRequestFailed, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkRequestFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned status %d", ErrNetworkRequestFailed, uri, resp.StatusCode)
	}

	return &Blob{
		Body:        resp.Body,
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
	}, nil
}
