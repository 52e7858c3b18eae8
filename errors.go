package assetload

import (
	"errors"
	"fmt"

	"github.com/hupe1980/assetload/blobstore"
	"github.com/hupe1980/assetload/resource"
)

var (
	// ErrNotFound is returned when a backend has no blob for a path.
	ErrNotFound = errors.New("bundle not found")
	// ErrNoArtifact is reported when decoding finished without producing an artifact.
	ErrNoArtifact = errors.New("decoder finished without an artifact")
	// ErrCancelled is reported by a task that was disposed before it finished.
	ErrCancelled = errors.New("load cancelled")
	// ErrLoaderClosed is reported for loads started after Close.
	ErrLoaderClosed = errors.New("loader is closed")
	// ErrNoBackend is returned when no store is configured for a storage location.
	ErrNoBackend = errors.New("no backend configured")
	// ErrMemoryLimitExceeded is returned when a fetched buffer or a decoded bundle does not fit the memory budget.
	ErrMemoryLimitExceeded = resource.ErrMemoryLimitExceeded
)

// ConfigError reports an unusable loader setting, such as an unrecognized
// default storage location.
type ConfigError struct {
	Setting string
	Value   string
	cause   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %q", e.Setting, e.Value)
}

func (e *ConfigError) Unwrap() error { return e.cause }

// FetchError reports a failed backend read.
//
// The original underlying error can be accessed via errors.Unwrap.
type FetchError struct {
	Path     string
	Location StorageLocation
	cause    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.Path, e.Location, e.cause)
}

func (e *FetchError) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, blobstore.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	return err
}
