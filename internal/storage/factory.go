package storage

import (
	"context"
	"fmt"

	"github.com/sharingconfigs/sharingconfigs/internal/config"
	"github.com/sharingconfigs/sharingconfigs/internal/storage/local"
	"github.com/sharingconfigs/sharingconfigs/internal/storage/memory"
	s3backend "github.com/sharingconfigs/sharingconfigs/internal/storage/s3"
)

// NewBackend creates the configured Backend, instrumented with metrics.
func NewBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	var (
		b   Backend
		err error
	)
	switch cfg.StorageBackend {
	case "memory", "":
		b = memory.New()
	case "local":
		b, err = local.New(local.Config{RootPath: cfg.LocalStoragePath, CreateDirs: true})
	case "s3":
		b, err = s3backend.NewBackend(ctx, s3backend.BackendConfig{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Region:    cfg.S3Region,
		})
	default:
		return nil, fmt.Errorf("unknown backend type: %s", cfg.StorageBackend)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", cfg.StorageBackend, err)
	}
	return Instrument(b), nil
}
