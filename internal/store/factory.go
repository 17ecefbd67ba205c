package store

import (
	"context"

	"mantis/internal/config"
	"mantis/internal/mantis"
)

// NewS3StoreFromConfig creates an S3Store for the given bucket, taking
// region and credentials from config. An explicit bucket argument overrides
// the configured one.
func NewS3StoreFromConfig(ctx context.Context, cfg config.S3Config, bucket string) (mantis.ObjectStore, error) {
	if bucket == "" {
		bucket = cfg.Bucket
	}
	return NewS3Store(ctx, S3Options{
		Bucket:          bucket,
		Prefix:          cfg.Prefix,
		Region:          cfg.Region,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
	})
}
