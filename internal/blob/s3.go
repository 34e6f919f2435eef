package blob

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/soyeahso/attachkit/internal/config"
)

// s3API is the subset of *s3.Client used by S3Store.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// presignAPI is the subset of *s3.PresignClient used by S3Store.
type presignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Store stores objects in an S3-compatible bucket (AWS S3, DigitalOcean
// Spaces, MinIO).
type S3Store struct {
	client    s3API
	presign   presignAPI
	bucket    string
	prefix    string
	publicURL string
	urlExpiry time.Duration
	maxSize   int64
	backend   string
}

// NewS3Client builds an S3 client from static configuration. Without an
// access key the client signs nothing, which suits public-write test buckets.
func NewS3Client(cfg config.S3Config) *s3.Client {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := s3.Options{
		Region:       region,
		UsePathStyle: cfg.PathStyle,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKeyID != "" {
		creds := aws.Credentials{
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			Source:          "attachkit config",
		}
		opts.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) { return creds, nil },
		))
	} else {
		opts.Credentials = aws.AnonymousCredentials{}
	}
	return s3.New(opts)
}

// NewS3Store creates an S3 store.
//
// Parameters:
//   - client: S3 client from aws-sdk-go-v2
//   - cfg: bucket, key prefix, public base URL and presign expiry
//   - maxSize: maximum object size in bytes (0 = no limit)
func NewS3Store(client *s3.Client, cfg config.S3Config, maxSize int64) *S3Store {
	expiry := time.Duration(cfg.PresignMinutes) * time.Minute
	if expiry <= 0 {
		expiry = 7 * 24 * time.Hour
	}
	return &S3Store{
		client:    client,
		presign:   s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		prefix:    cfg.Prefix,
		publicURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		urlExpiry: expiry,
		maxSize:   maxSize,
		backend:   "s3",
	}
}

// WithPublicBaseURL sets the prefix used to build download URLs instead of
// presigning them.
func (s *S3Store) WithPublicBaseURL(base string) *S3Store {
	s.publicURL = strings.TrimRight(base, "/")
	return s
}

func (s *S3Store) Backend() string { return s.backend }

// Put uploads the object body with PutObject.
func (s *S3Store) Put(ctx context.Context, obj Object) error {
	if err := checkName(obj.Name); err != nil {
		return err
	}
	if s.maxSize > 0 && obj.Size > s.maxSize {
		return ErrTooLarge
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(obj.Name)),
		Body:   obj.Body,
		Metadata: map[string]string{
			"upload-time": time.Now().UTC().Format(time.RFC3339),
		},
	}
	if obj.ContentType != "" {
		input.ContentType = aws.String(obj.ContentType)
	}
	if obj.Size > 0 {
		input.ContentLength = aws.Int64(obj.Size)
	}
	if s.publicURL != "" {
		input.ACL = types.ObjectCannedACLPublicRead
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("s3 upload failed: %w", err)
	}
	return nil
}

// URL confirms the object exists and returns its public URL, or a presigned
// GET URL when no public base URL is configured.
func (s *S3Store) URL(ctx context.Context, name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	key := s.key(name)

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("s3 head failed: %w", err)
	}

	if s.publicURL != "" {
		return publicObjectURL(s.publicURL, key), nil
	}

	req, err := s.presign.PresignGetObject(ctx,
		&s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		},
		s3.WithPresignExpires(s.urlExpiry),
	)
	if err != nil {
		return "", fmt.Errorf("s3 presign failed: %w", err)
	}
	return req.URL, nil
}

func (s *S3Store) key(name string) string {
	return s.prefix + name
}

// publicObjectURL joins a base URL and an object key, escaping each key
// segment.
func publicObjectURL(base, key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return base + "/" + strings.Join(segments, "/")
}
