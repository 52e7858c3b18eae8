package bundle

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	// Magic identifies bundle files.
	Magic = "ABND"
	// Version is the current container version.
	Version uint16 = 1

	fileHeaderSize  = 4 + 2 + 2 + 4
	entryFixedSize  = 1 + 4 + 4 + DigestSize
	maxEntryNameLen = math.MaxUint16

	// DigestSize is the size of an entry digest.
	DigestSize = 32

	// MaxEntrySize is the largest raw entry a bundle may declare.
	MaxEntrySize = 256 << 20

	// An LZ4 block cannot expand by more than 255x.
	maxLZ4Ratio = 255
)

var (
	// ErrInvalidMagic is returned for data that is not a bundle.
	ErrInvalidMagic = errors.New("bundle: invalid magic")
	// ErrInvalidVersion is returned for an unsupported container version.
	ErrInvalidVersion = errors.New("bundle: unsupported version")
	// ErrCorrupt is returned when the container structure is inconsistent.
	ErrCorrupt = errors.New("bundle: corrupt container")
	// ErrChecksum is returned when an entry does not match its digest.
	ErrChecksum = errors.New("bundle: checksum mismatch")
	// ErrDuplicateEntry is returned when two entries share a name.
	ErrDuplicateEntry = errors.New("bundle: duplicate entry")
)

// EntryInfo describes one entry of a bundle's table.
type EntryInfo struct {
	Name        string
	Compression Compression
	RawSize     uint32
	StoredSize  uint32
	Digest      [DigestSize]byte

	offset int // absolute offset of the stored bytes
}

// Manifest is the parsed entry table of a bundle.
type Manifest struct {
	Version uint16
	Entries []EntryInfo
}

// StoredSize returns the sum of all stored payload sizes.
func (m Manifest) StoredSize() int64 {
	var n int64
	for _, e := range m.Entries {
		n += int64(e.StoredSize)
	}
	return n
}

// RawSize returns the sum of all raw entry sizes.
func (m Manifest) RawSize() int64 {
	var n int64
	for _, e := range m.Entries {
		n += int64(e.RawSize)
	}
	return n
}

// ReadManifest parses and validates the entry table of data without
// decompressing any payload.
func ReadManifest(data []byte) (Manifest, error) {
	if len(data) < fileHeaderSize {
		return Manifest{}, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorrupt, len(data))
	}
	if string(data[:4]) != Magic {
		return Manifest{}, ErrInvalidMagic
	}

	version := binary.LittleEndian.Uint16(data[4:])
	if version != Version {
		return Manifest{}, fmt.Errorf("%w: %d", ErrInvalidVersion, version)
	}

	count := binary.LittleEndian.Uint32(data[8:])
	off := fileHeaderSize

	// Every entry needs at least its fixed part; reject absurd counts before allocating.
	if uint64(count)*uint64(2+entryFixedSize) > uint64(len(data)-off) {
		return Manifest{}, fmt.Errorf("%w: entry count %d exceeds data", ErrCorrupt, count)
	}

	entries := make([]EntryInfo, 0, count)
	seen := make(map[string]struct{}, count)
	for i := range count {
		if off+2 > len(data) {
			return Manifest{}, fmt.Errorf("%w: truncated entry %d", ErrCorrupt, i)
		}
		nameLen := int(binary.LittleEndian.Uint16(data[off:]))
		off += 2

		if off+nameLen+entryFixedSize > len(data) {
			return Manifest{}, fmt.Errorf("%w: truncated entry %d", ErrCorrupt, i)
		}
		name := string(data[off : off+nameLen])
		off += nameLen

		if _, dup := seen[name]; dup {
			return Manifest{}, fmt.Errorf("%w: %q", ErrDuplicateEntry, name)
		}
		seen[name] = struct{}{}

		e := EntryInfo{
			Name:        name,
			Compression: Compression(data[off]),
			RawSize:     binary.LittleEndian.Uint32(data[off+1:]),
			StoredSize:  binary.LittleEndian.Uint32(data[off+5:]),
		}
		copy(e.Digest[:], data[off+9:off+9+DigestSize])
		off += entryFixedSize

		if err := e.checkSizes(); err != nil {
			return Manifest{}, err
		}
		entries = append(entries, e)
	}

	for i := range entries {
		entries[i].offset = off
		off += int(entries[i].StoredSize)
		if off > len(data) {
			return Manifest{}, fmt.Errorf("%w: payload of %q runs past end", ErrCorrupt, entries[i].Name)
		}
	}
	if off != len(data) {
		return Manifest{}, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(data)-off)
	}

	return Manifest{Version: version, Entries: entries}, nil
}

func (e EntryInfo) stored(data []byte) []byte {
	return data[e.offset : e.offset+int(e.StoredSize)]
}

// checkSizes rejects entries whose declared raw size cannot follow from
// their stored size.
func (e EntryInfo) checkSizes() error {
	if !e.Compression.valid() {
		return fmt.Errorf("%w: entry %q has unknown compression %d", ErrCorrupt, e.Name, e.Compression)
	}
	if e.RawSize > MaxEntrySize {
		return fmt.Errorf("%w: entry %q declares %d bytes, limit is %d", ErrCorrupt, e.Name, e.RawSize, MaxEntrySize)
	}

	switch e.Compression {
	case CompressionNone:
		if e.RawSize != e.StoredSize {
			return fmt.Errorf("%w: uncompressed entry %q stores %d bytes, declares %d", ErrCorrupt, e.Name, e.StoredSize, e.RawSize)
		}
	case CompressionLZ4:
		if e.StoredSize == 0 || uint64(e.RawSize) > uint64(e.StoredSize)*maxLZ4Ratio {
			return fmt.Errorf("%w: lz4 entry %q cannot expand %d bytes to %d", ErrCorrupt, e.Name, e.StoredSize, e.RawSize)
		}
	case CompressionZstd:
		if e.StoredSize == 0 {
			return fmt.Errorf("%w: zstd entry %q is empty", ErrCorrupt, e.Name)
		}
	}
	return nil
}
