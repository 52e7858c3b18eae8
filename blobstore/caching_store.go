package blobstore

import (
	"context"

	"github.com/hupe1980/assetload/cache"
)

// CachingStore wraps a BlobStore and keeps whole blobs in a BlobCache.
// It is meant for remote stores where a repeated fetch costs a round trip.
type CachingStore struct {
	inner BlobStore
	cache cache.BlobCache
}

// NewCachingStore creates a new CachingStore.
func NewCachingStore(inner BlobStore, c cache.BlobCache) *CachingStore {
	return &CachingStore{inner: inner, cache: c}
}

// Open serves cached blobs from memory. A miss reads the blob through the
// cache first.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	if data, ok := s.cache.Get(ctx, name); ok {
		return &byteBlob{data: data}, nil
	}

	data, err := s.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	return &byteBlob{data: data}, nil
}

// Fetch returns the blob from the cache or reads it through and caches it.
func (s *CachingStore) Fetch(ctx context.Context, name string) ([]byte, error) {
	if data, ok := s.cache.Get(ctx, name); ok {
		return clone(data), nil
	}

	data, err := ReadAll(ctx, s.inner, name)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, name, clone(data))
	return data, nil
}

// Invalidate drops name from the cache so the next fetch goes to the inner store.
func (s *CachingStore) Invalidate(name string) {
	s.cache.Invalidate(name)
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
