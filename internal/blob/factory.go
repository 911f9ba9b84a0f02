// Package blob opens the configured snapshot archive backend.
package blob

import (
	"context"
	"fmt"

	"counterstrike/internal/blob/core"
	"counterstrike/internal/config"
	"counterstrike/internal/infra/blob/fs"
	"counterstrike/internal/infra/blob/memory"
	"counterstrike/internal/infra/blob/s3"
)

// Store re-exports the blob contract so callers need a single import.
type Store = core.Store

// Open selects a blob store for cfg.Driver (fs|s3|memory; default fs).
func Open(ctx context.Context, cfg config.Blob) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = config.BlobFilesystem
	}
	switch driver {
	case config.BlobFilesystem:
		return fs.New(cfg.FSRoot)
	case config.BlobS3:
		return s3.New(ctx, s3.Config{
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			PathStyle:       cfg.S3.PathStyle,
		})
	case config.BlobMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
