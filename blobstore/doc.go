// Package blobstore provides the storage backends that serve raw bundle bytes.
//
// BlobStore is the read-side abstraction the fetch stage consumes.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: persistent data on the local filesystem (mmap + copy)
//   - FSStore: bundled resources from any fs.FS, typically an embed.FS
//   - MemoryStore: in-memory store for tests and tooling
//   - CachingStore: whole-blob LRU in front of a slower store
//   - s3.Store: Amazon S3 (range reads, whole-object downloads)
//   - minio.Store: MinIO and other S3-compatible services
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	}
//
//	type Blob interface {
//	    ReadAt(ctx, p, off) (int, error)
//	    Size() int64
//	    Close() error
//	}
//
// Stores that can produce a whole blob more cheaply than Open+ReadAt should
// also implement Fetcher; ReadAll prefers it.
package blobstore
