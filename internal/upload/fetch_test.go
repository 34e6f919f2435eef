package upload

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRef(t *testing.T) {
	assert.Equal(t, "file:///tmp/a.jpg", NormalizeRef("/tmp/a.jpg"))
	assert.Equal(t, "file:///tmp/a.jpg", NormalizeRef("file:///tmp/a.jpg"))
	assert.Equal(t, "https://example.com/a.jpg", NormalizeRef("https://example.com/a.jpg"))
}

func TestHTTPFetcher_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg-bytes"), 0o644))

	f := NewFetcher(5 * time.Second)
	for _, ref := range []string{"file://" + path, path} {
		b, err := f.Fetch(context.Background(), ref)
		require.NoError(t, err, ref)
		data, err := io.ReadAll(b.Body)
		b.Body.Close()
		require.NoError(t, err)
		assert.Equal(t, "jpeg-bytes", string(data))
		assert.Equal(t, "image/jpeg", b.ContentType)
	}
}

func TestHTTPFetcher_FileMissing(t *testing.T) {
	f := NewFetcher(0)

	_, err := f.Fetch(context.Background(), "file:///definitely/not/here.jpg")
	assert.ErrorIs(t, err, ErrNetworkRequestFailed)
}

func TestHTTPFetcher_FileDirectory(t *testing.T) {
	f := NewFetcher(0)

	_, err := f.Fetch(context.Background(), "file://"+t.TempDir())
	assert.ErrorIs(t, err, ErrNetworkRequestFailed)
}

func TestHTTPFetcher_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/img/a.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png"))
	}))
	defer srv.Close()

	f := NewFetcherWithClient(srv.Client())

	b, err := f.Fetch(context.Background(), srv.URL+"/img/a.png")
	require.NoError(t, err)
	defer b.Body.Close()
	assert.Equal(t, "image/png", b.ContentType)
	assert.Equal(t, int64(3), b.Size)

	_, err = f.Fetch(context.Background(), srv.URL+"/img/missing.png")
	assert.ErrorIs(t, err, ErrNetworkRequestFailed)
}

func TestHTTPFetcher_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := NewFetcher(time.Second).Fetch(context.Background(), addr+"/a.jpg")
	assert.ErrorIs(t, err, ErrNetworkRequestFailed)
}

func TestHTTPFetcher_UnsupportedScheme(t *testing.T) {
	f := NewFetcher(0)

	for _, ref := range []string{"content://media/external/images/1", "ftp://host/a.jpg", "relative/a.jpg"} {
		_, err := f.Fetch(context.Background(), ref)
		assert.ErrorIs(t, err, ErrNetworkRequestFailed, ref)
	}
}
