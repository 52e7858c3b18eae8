package blobstore

import (
	"context"
	"errors"
	"io/fs"
	"path"
)

// FSStore serves bundled resources from an fs.FS such as an embed.FS.
type FSStore struct {
	fsys fs.FS
}

// NewFSStore creates a store over fsys. If dir is not empty the store is
// rooted at that subdirectory.
func NewFSStore(fsys fs.FS, dir string) (*FSStore, error) {
	if dir != "" && dir != "." {
		sub, err := fs.Sub(fsys, dir)
		if err != nil {
			return nil, err
		}
		fsys = sub
	}
	return &FSStore{fsys: fsys}, nil
}

// Open opens a blob for reading.
func (s *FSStore) Open(ctx context.Context, name string) (Blob, error) {
	data, err := s.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	return &byteBlob{data: data}, nil
}

// Fetch reads the whole resource.
func (s *FSStore) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(s.fsys, fsName(name))
	if errors.Is(err, fs.ErrInvalid) {
		return nil, ErrNotFound
	}
	return data, err
}

// fsName converts a blob name into an fs.ValidPath.
func fsName(name string) string {
	clean := path.Clean("/" + name)
	if clean == "/" {
		return "."
	}
	return clean[1:]
}
