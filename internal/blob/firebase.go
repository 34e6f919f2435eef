package blob

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"

	"github.com/soyeahso/attachkit/internal/config"
)

// downloadTokenKey is the object metadata key Firebase Storage reads download
// tokens from.
const downloadTokenKey = "firebaseStorageDownloadTokens"

const firebaseDownloadBase = "https://firebasestorage.googleapis.com/v0/b/"

// FirebaseStore stores objects in a Firebase Storage bucket through the Cloud
// Storage JSON API. Each object gets a download token so its URL works
// without Google credentials, the same way the Firebase client SDKs do it.
type FirebaseStore struct {
	svc          *storage.Service
	bucket       string
	maxSize      int64
	downloadBase string
	newToken     func() string
}

// NewFirebaseService creates a Cloud Storage client. With a credentials file
// the service account JSON is used; with only an endpoint (emulators, tests)
// requests are unauthenticated; otherwise application default credentials
// apply.
func NewFirebaseService(ctx context.Context, cfg config.FirebaseConfig, extra ...option.ClientOption) (*storage.Service, error) {
	var opts []option.ClientOption
	switch {
	case cfg.CredentialsFile != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("unable to read credentials file: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, b, storage.DevstorageReadWriteScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse credentials file: %w", err)
		}
		opts = append(opts, option.WithCredentials(creds))
	case cfg.Endpoint != "":
		opts = append(opts, option.WithoutAuthentication())
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	opts = append(opts, extra...)

	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create storage client: %w", err)
	}
	return svc, nil
}

// NewFirebaseStore creates a Firebase store for bucket.
func NewFirebaseStore(svc *storage.Service, bucket string, maxSize int64) *FirebaseStore {
	return &FirebaseStore{
		svc:          svc,
		bucket:       bucket,
		maxSize:      maxSize,
		downloadBase: firebaseDownloadBase,
		newToken:     uuid.NewString,
	}
}

func (s *FirebaseStore) Backend() string { return "firebase" }

// Put uploads the object with a fresh download token.
func (s *FirebaseStore) Put(ctx context.Context, obj Object) error {
	if err := checkName(obj.Name); err != nil {
		return err
	}
	if s.maxSize > 0 && obj.Size > s.maxSize {
		return ErrTooLarge
	}

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	meta := &storage.Object{
		Name:        obj.Name,
		ContentType: contentType,
		Metadata:    map[string]string{downloadTokenKey: s.newToken()},
	}

	_, err := s.svc.Objects.Insert(s.bucket, meta).
		Media(obj.Body, googleapi.ContentType(contentType)).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("firebase upload failed: %w", err)
	}
	return nil
}

// URL reads the object's metadata and builds its tokenized download URL.
func (s *FirebaseStore) URL(ctx context.Context, name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}

	obj, err := s.svc.Objects.Get(s.bucket, name).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("firebase metadata lookup failed: %w", err)
	}

	token, _, _ := strings.Cut(obj.Metadata[downloadTokenKey], ",")
	if token == "" {
		return "", fmt.Errorf("firebase object %q has no download token", name)
	}
	return firebaseDownloadURL(s.downloadBase, s.bucket, name, token), nil
}

func firebaseDownloadURL(base, bucket, name, token string) string {
	q := url.Values{}
	q.Set("alt", "media")
	q.Set("token", token)
	return base + url.PathEscape(bucket) + "/o/" + url.PathEscape(name) + "?" + q.Encode()
}
