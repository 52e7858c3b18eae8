package bundle

import (
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies how an entry's payload is stored.
// The values are part of the container format.
type Compression uint8

const (
	// CompressionNone stores raw bytes.
	CompressionNone Compression = 0
	// CompressionLZ4 stores an LZ4 block (fast decode, default).
	CompressionLZ4 Compression = 1
	// CompressionZstd stores a zstd frame (better ratio for text-like data).
	CompressionZstd Compression = 2
)

// String returns the human-readable name of a compression.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a compression name.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("bundle: unknown compression %q", name)
	}
}

func (c Compression) valid() bool {
	return c <= CompressionZstd
}

var errIncompressible = errors.New("bundle: data is incompressible")

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(MaxEntrySize),
	)
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// compress returns the stored form of data, or errIncompressible when
// the compressed form would not be smaller.
func compress(data []byte, c Compression) ([]byte, error) {
	if c != CompressionNone && len(data) == 0 {
		return nil, errIncompressible
	}

	switch c {
	case CompressionNone:
		return data, nil

	case CompressionLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, dst, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		// CompressBlock returns 0 when it decides the input is incompressible.
		if n == 0 || n >= len(data) {
			return nil, errIncompressible
		}
		return dst[:n], nil

	case CompressionZstd:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, fmt.Errorf("zstd encoder: %w", err)
		}
		defer zstdEncoderPool.Put(enc)

		out := enc.EncodeAll(data, nil)
		if len(out) >= len(data) {
			return nil, errIncompressible
		}
		return out, nil

	default:
		return nil, fmt.Errorf("bundle: unsupported compression %s", c)
	}
}

// decompressor holds the decode-side state of one Decoder. The zstd decoder
// is taken from the pool on first use and returned by release.
type decompressor struct {
	zstd *zstd.Decoder
}

func (d *decompressor) decompress(stored []byte, c Compression, rawSize int) ([]byte, error) {
	switch c {
	case CompressionNone:
		if len(stored) != rawSize {
			return nil, fmt.Errorf("%w: stored %d bytes, expected %d", ErrCorrupt, len(stored), rawSize)
		}
		out := make([]byte, rawSize)
		copy(out, stored)
		return out, nil

	case CompressionLZ4:
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(stored, out)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if n != rawSize {
			return nil, fmt.Errorf("%w: lz4 produced %d bytes, expected %d", ErrCorrupt, n, rawSize)
		}
		return out, nil

	case CompressionZstd:
		if d.zstd == nil {
			dec, err := getZstdDecoder()
			if err != nil {
				return nil, fmt.Errorf("zstd decoder: %w", err)
			}
			d.zstd = dec
		}
		// A frame that records its content size must agree with the table.
		var h zstd.Header
		if err := h.Decode(stored); err != nil {
			return nil, fmt.Errorf("%w: zstd frame header: %w", ErrCorrupt, err)
		}
		if h.HasFCS && h.FrameContentSize != uint64(rawSize) {
			return nil, fmt.Errorf("%w: zstd frame holds %d bytes, expected %d", ErrCorrupt, h.FrameContentSize, rawSize)
		}

		out, err := d.zstd.DecodeAll(stored, make([]byte, 0, min(rawSize, zstdInitialCap(len(stored)))))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(out) != rawSize {
			return nil, fmt.Errorf("%w: zstd produced %d bytes, expected %d", ErrCorrupt, len(out), rawSize)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("bundle: unsupported compression %s", c)
	}
}

// zstdInitialCap bounds the up-front allocation for a zstd entry; DecodeAll
// grows the buffer as frames actually decode.
func zstdInitialCap(stored int) int {
	return 4*stored + 64<<10
}

func (d *decompressor) release() {
	if d.zstd != nil {
		putZstdDecoder(d.zstd)
		d.zstd = nil
	}
}
