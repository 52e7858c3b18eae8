package bundle

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
)

// Entry is a named payload to be packed into a bundle.
type Entry struct {
	Name string
	Data []byte
}

// Writer accumulates entries and serializes them as a bundle.
// It is not safe for concurrent use.
type Writer struct {
	compression Compression
	entries     []EntryInfo
	payloads    [][]byte
	names       map[string]struct{}
}

// NewWriter creates a writer that stores entries with the given compression.
// Entries that do not shrink are stored uncompressed.
func NewWriter(c Compression) *Writer {
	return &Writer{
		compression: c,
		names:       make(map[string]struct{}),
	}
}

// Add compresses and appends one entry.
func (w *Writer) Add(name string, data []byte) error {
	if name == "" {
		return errors.New("bundle: entry name is empty")
	}
	if len(name) > maxEntryNameLen {
		return fmt.Errorf("bundle: entry name of %d bytes is too long", len(name))
	}
	if len(data) > MaxEntrySize {
		return fmt.Errorf("bundle: entry %q of %d bytes exceeds %d", name, len(data), MaxEntrySize)
	}
	if _, dup := w.names[name]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateEntry, name)
	}
	if !w.compression.valid() {
		return fmt.Errorf("bundle: unsupported compression %s", w.compression)
	}

	c := w.compression
	stored, err := compress(data, c)
	if errors.Is(err, errIncompressible) {
		c, stored = CompressionNone, data
	} else if err != nil {
		return fmt.Errorf("bundle: entry %q: %w", name, err)
	}

	w.names[name] = struct{}{}
	w.entries = append(w.entries, EntryInfo{
		Name:        name,
		Compression: c,
		RawSize:     uint32(len(data)),
		StoredSize:  uint32(len(stored)),
		Digest:      blake3.Sum256(data),
	})
	w.payloads = append(w.payloads, stored)
	return nil
}

// Len returns the number of entries added so far.
func (w *Writer) Len() int {
	return len(w.entries)
}

// WriteTo serializes the bundle.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	var hdr bytes.Buffer
	hdr.WriteString(Magic)

	var scratch [4]byte
	binary.LittleEndian.PutUint16(scratch[:2], Version)
	hdr.Write(scratch[:2])
	binary.LittleEndian.PutUint16(scratch[:2], 0)
	hdr.Write(scratch[:2])
	binary.LittleEndian.PutUint32(scratch[:], uint32(len(w.entries)))
	hdr.Write(scratch[:])

	for _, e := range w.entries {
		binary.LittleEndian.PutUint16(scratch[:2], uint16(len(e.Name)))
		hdr.Write(scratch[:2])
		hdr.WriteString(e.Name)
		hdr.WriteByte(byte(e.Compression))
		binary.LittleEndian.PutUint32(scratch[:], e.RawSize)
		hdr.Write(scratch[:])
		binary.LittleEndian.PutUint32(scratch[:], e.StoredSize)
		hdr.Write(scratch[:])
		hdr.Write(e.Digest[:])
	}

	total, err := hdr.WriteTo(out)
	if err != nil {
		return total, err
	}
	for _, p := range w.payloads {
		n, err := out.Write(p)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Encode packs entries into a bundle in memory.
func Encode(entries []Entry, c Compression) ([]byte, error) {
	w := NewWriter(c)
	for _, e := range entries {
		if err := w.Add(e.Name, e.Data); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
