package assetload

import "github.com/hupe1980/assetload/bundle"

// ArtifactDecoder turns fetched bytes into an artifact. It is polled by the
// owning LoadTask.
type ArtifactDecoder interface {
	// IsFinished reports whether decoding has ended.
	IsFinished() bool
	// Progress returns decode progress in [0,1].
	Progress() float64
	// Artifact returns the decoded artifact once finished, nil on failure.
	Artifact() any
	// Dispose releases decode resources. Dispose(true) tears down even a
	// running decode and returns only once no decode work is running.
	Dispose(force bool)
}

// DecoderFactory constructs a decoder that takes ownership of data.
type DecoderFactory func(logicalPath string, data []byte) ArtifactDecoder

// BundleDecoderFactory returns a DecoderFactory producing *bundle.Bundle
// artifacts.
func BundleDecoderFactory(opts ...bundle.DecoderOption) DecoderFactory {
	newDecoder := bundle.Factory(opts...)
	return func(logicalPath string, data []byte) ArtifactDecoder {
		return newDecoder(logicalPath, data)
	}
}

// errorReporter is implemented by decoders that can explain a missing artifact.
type errorReporter interface {
	Err() error
}
