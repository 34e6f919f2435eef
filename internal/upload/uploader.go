package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/soyeahso/attachkit/internal/blob"
	"github.com/soyeahso/attachkit/internal/hooks"
	"github.com/soyeahso/attachkit/internal/logging"
	"github.com/soyeahso/attachkit/internal/store"
)

// Uploaded describes an object written to blob storage.
type Uploaded struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size"`
	Backend     string `json:"backend"`
}

// Ledger records completed uploads.
type Ledger interface {
	RecordUpload(ctx context.Context, rec store.UploadRecord) error
}

// Emitter receives lifecycle events. *hooks.Manager satisfies it.
type Emitter interface {
	Emit(ctx context.Context, event string, data map[string]any)
}

// Uploader fetches a local reference, stores it under a derived name and
// resolves the download URL.
type Uploader struct {
	fetcher  Fetcher
	store    blob.Store
	namer    Namer
	maxBytes int64
	ledger   Ledger
	hooks    Emitter
	log      *logging.Logger
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithLedger records every successful upload.
func WithLedger(l Ledger) Option {
	return func(u *Uploader) { u.ledger = l }
}

// WithHooks emits upload_started and upload_completed events.
func WithHooks(e Emitter) Option {
	return func(u *Uploader) { u.hooks = e }
}

// WithMaxBytes rejects references larger than n bytes (0 = no limit).
func WithMaxBytes(n int64) Option {
	return func(u *Uploader) { u.maxBytes = n }
}

// New creates an uploader. A nil namer selects UniqueNamer.
func New(fetcher Fetcher, store blob.Store, namer Namer, log *logging.Logger, opts ...Option) *Uploader {
	if namer == nil {
		namer = UniqueNamer()
	}
	u := &Uploader{
		fetcher: fetcher,
		store:   store,
		namer:   namer,
		log:     log.Sub("upload"),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Upload moves the referenced bytes into blob storage and returns the
// object's download URL. The fetched handle is released once the store
// write finishes, whether or not it succeeded. Fetch failures wrap
// ErrNetworkRequestFailed.
func (u *Uploader) Upload(ctx context.Context, ref string) (*Uploaded, error) {
	start := time.Now()
	u.emit(ctx, hooks.EventUploadStarted, map[string]any{"ref": ref, "backend": u.store.Backend()})

	fetched, err := u.fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}

	data, err := u.readAll(fetched.Body)
	if err != nil {
		fetched.Body.Close()
		return nil, err
	}

	name, err := u.namer.Name(ref, data)
	if err != nil {
		fetched.Body.Close()
		return nil, fmt.Errorf("naming upload: %w", err)
	}

	contentType := fetched.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	putErr := u.store.Put(ctx, blob.Object{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Body:        bytes.NewReader(data),
	})
	fetched.Body.Close()
	if putErr != nil {
		return nil, fmt.Errorf("storing %s: %w", name, putErr)
	}

	url, err := u.store.URL(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("resolving download URL for %s: %w", name, err)
	}

	up := &Uploaded{
		Name:        name,
		URL:         url,
		ContentType: contentType,
		Size:        int64(len(data)),
		Backend:     u.store.Backend(),
	}

	if u.ledger != nil {
		err := u.ledger.RecordUpload(ctx, store.UploadRecord{
			Name:        up.Name,
			URL:         up.URL,
			Backend:     up.Backend,
			ContentType: up.ContentType,
			Size:        up.Size,
			Source:      ref,
		})
		if err != nil {
			u.log.Warn().Err(err).Str("name", name).Msg("failed to record upload")
		}
	}

	u.log.Info().
		Str("name", name).
		Str("backend", up.Backend).
		Int64("size", up.Size).
		Dur("elapsed", time.Since(start)).
		Msg("upload complete")

	u.emit(ctx, hooks.EventUploadCompleted, map[string]any{
		"ref":  ref,
		"name": up.Name,
		"url":  up.URL,
		"size": up.Size,
	})
	return up, nil
}

func (u *Uploader) readAll(r io.Reader) ([]byte, error) {
	if u.maxBytes > 0 {
		r = io.LimitReader(r, u.maxBytes+1) // +1 to detect overflow
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkRequestFailed, err)
	}
	if u.maxBytes > 0 && int64(len(data)) > u.maxBytes {
		return nil, fmt.Errorf("reference exceeds %d bytes: %w", u.maxBytes, blob.ErrTooLarge)
	}
	return data, nil
}

func (u *Uploader) emit(ctx context.Context, event string, data map[string]any) {
	if u.hooks != nil {
		u.hooks.Emit(ctx, event, data)
	}
}
