package main

import (
	"context"
	"fmt"
	"os"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/assetload"
	"github.com/hupe1980/assetload/blobstore"
	"github.com/hupe1980/assetload/blobstore/minio"
	"github.com/hupe1980/assetload/blobstore/s3"
	"github.com/hupe1980/assetload/cache"
	"github.com/hupe1980/assetload/config"
	"github.com/hupe1980/assetload/resource"
)

// openStore builds the blob store described by bc.
func openStore(ctx context.Context, bc config.BackendConfig) (blobstore.BlobStore, error) {
	switch bc.Type {
	case config.BackendLocal:
		return blobstore.NewLocalStore(bc.Dir), nil
	case config.BackendFS:
		return blobstore.NewFSStore(os.DirFS(bc.Dir), "")
	case config.BackendS3:
		var opts []s3.Option
		if bc.Prefix != "" {
			opts = append(opts, s3.WithPrefix(bc.Prefix))
		}
		if bc.Region != "" {
			opts = append(opts, s3.WithRegion(bc.Region))
		}
		if bc.Endpoint != "" {
			opts = append(opts, s3.WithEndpoint(bc.Endpoint))
		}
		return s3.New(ctx, bc.Bucket, opts...)
	case config.BackendMinIO:
		client, err := miniogo.New(bc.Endpoint, &miniogo.Options{
			Creds:  credentials.NewStaticV4(bc.AccessKey, bc.SecretKey, ""),
			Secure: bc.Secure,
			Region: bc.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		return minio.NewStore(client, bc.Bucket, bc.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown backend type %q", bc.Type)
	}
}

// loaderOptions translates cfg into loader options, opening every backend.
func loaderOptions(ctx context.Context, cfg *config.Config, logger *assetload.Logger) ([]assetload.Option, error) {
	def, err := assetload.ParseStorageLocation(cfg.DefaultLocation)
	if err != nil {
		return nil, err
	}

	rc := resource.NewController(cfg.ResourceLimits())
	opts := []assetload.Option{
		assetload.WithLogger(logger),
		assetload.WithDefaultLocation(def),
		assetload.WithTickInterval(cfg.TickInterval),
		assetload.WithWorkers(cfg.Workers),
		assetload.WithResourceController(rc),
	}
	if len(cfg.WarnOnRelease) > 0 {
		opts = append(opts, assetload.WithReleaseDiagnostic(assetload.WarnOnRelease(logger, cfg.WarnOnRelease...)))
	}

	for name, bc := range cfg.Backends {
		loc, err := assetload.ParseStorageLocation(name)
		if err != nil {
			return nil, err
		}
		store, err := openStore(ctx, bc)
		if err != nil {
			return nil, fmt.Errorf("backend %s: %w", name, err)
		}
		if bc.CacheBytes > 0 {
			store = blobstore.NewCachingStore(store, cache.NewLRU(bc.CacheBytes, rc))
		}
		opts = append(opts, assetload.WithBackend(loc, store))
	}
	return opts, nil
}
