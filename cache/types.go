package cache

import "context"

// BlobCache is a byte-oriented cache keyed by blob name.
// Returned slices must be treated as read-only.
type BlobCache interface {
	// Get returns a cached blob. ok=false if missing.
	Get(ctx context.Context, name string) (b []byte, ok bool)
	// Set caches a blob. The cache retains b; callers must not modify it afterwards.
	Set(ctx context.Context, name string, b []byte)
	// Invalidate removes a single entry.
	Invalidate(name string)
	// Stats returns cache statistics.
	Stats() (hits, misses int64)
}
