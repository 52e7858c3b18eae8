package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore is an abstraction for reading immutable data blobs (bundles).
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
}

// Blob is a read-only handle to a data blob.
type Blob interface {
	// ReadAt reads len(p) bytes at off. It follows io.ReaderAt semantics.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// Size returns the size of the blob in bytes.
	Size() int64
	io.Closer
}

// Fetcher is an optional interface for stores that can return a whole blob
// in one call. The returned slice is owned by the caller.
type Fetcher interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// ReadAll returns the complete contents of a blob in a buffer owned by the caller.
func ReadAll(ctx context.Context, store BlobStore, name string) ([]byte, error) {
	if f, ok := store.(Fetcher); ok {
		return f.Fetch(ctx, name)
	}

	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = b.Close() }()

	size := b.Size()
	if size < 0 {
		return nil, fmt.Errorf("blobstore: %s: negative size %d", name, size)
	}

	buf := make([]byte, size)
	if size == 0 {
		return buf, nil
	}

	n, err := b.ReadAt(ctx, buf, 0)
	if err != nil && !(errors.Is(err, io.EOF) && int64(n) == size) {
		return nil, err
	}
	if int64(n) != size {
		return nil, fmt.Errorf("blobstore: %s: short read %d of %d: %w", name, n, size, io.ErrUnexpectedEOF)
	}
	return buf, nil
}

// byteBlob is a Blob over an in-memory slice.
type byteBlob struct {
	data []byte
}

func (b *byteBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if off < 0 {
		return 0, fmt.Errorf("blobstore: negative offset %d", off)
	}
	if off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *byteBlob) Size() int64 {
	return int64(len(b.data))
}

func (b *byteBlob) Close() error {
	return nil
}
