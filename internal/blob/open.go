package blob

import (
	"context"
	"fmt"

	"github.com/soyeahso/attachkit/internal/config"
	"github.com/soyeahso/attachkit/internal/logging"
)

// Open builds the Store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig, log *logging.Logger) (Store, error) {
	log = log.Sub("blob")

	switch cfg.Backend {
	case "", "disk":
		store, err := NewDiskStore(cfg.Disk.Dir, cfg.Disk.BaseURL, cfg.MaxBytes)
		if err != nil {
			return nil, fmt.Errorf("opening disk store: %w", err)
		}
		log.Debug().Str("dir", store.dir).Msg("disk store ready")
		return store, nil

	case "s3":
		store := NewS3Store(NewS3Client(cfg.S3), cfg.S3, cfg.MaxBytes)
		log.Debug().Str("bucket", cfg.S3.Bucket).Msg("s3 store ready")
		return store, nil

	case "spaces":
		store := NewS3Store(NewS3Client(cfg.S3), cfg.S3, cfg.MaxBytes)
		store.backend = "spaces"
		if cfg.S3.PublicBaseURL == "" {
			var cdns cdnLister
			if cfg.S3.SpacesToken != "" {
				cdns = NewSpacesCDNClient(ctx, cfg.S3.SpacesToken)
			}
			base, err := ResolveSpacesBaseURL(ctx, cdns, cfg.S3.Bucket, cfg.S3.Endpoint)
			if err != nil {
				return nil, err
			}
			store.WithPublicBaseURL(base)
		}
		log.Debug().Str("bucket", cfg.S3.Bucket).Str("base_url", store.publicURL).Msg("spaces store ready")
		return store, nil

	case "firebase":
		svc, err := NewFirebaseService(ctx, cfg.Firebase)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("bucket", cfg.Firebase.Bucket).Msg("firebase store ready")
		return NewFirebaseStore(svc, cfg.Firebase.Bucket, cfg.MaxBytes), nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
