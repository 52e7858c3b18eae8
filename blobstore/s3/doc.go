// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// It serves the streaming location: bundles are fetched over the network.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("bundles/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	loader, err := assetload.New(
//	    assetload.WithBackend(assetload.LocationStreaming, store),
//	)
//
// # Features
//
//   - Whole-object downloads through the SDK transfer manager (parallel ranges)
//   - Range reads for partial access
//   - Multipart uploads with CRC32C validation (Put), used by bundlepack
//   - Configurable prefix for multi-tenant isolation
package s3
