// Package minio provides a BlobStore implementation using the MinIO client.
//
// It is an alternative streaming backend for deployments that serve bundles
// from MinIO or another S3-compatible service (Ceph, SeaweedFS, Garage)
// without pulling in the AWS SDK credential chain.
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "bundles", "v1/")
//	loader, err := assetload.New(assetload.WithBackend(assetload.LocationStreaming, store))
package minio
