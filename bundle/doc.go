// Package bundle implements the asset-bundle container and its decoder.
//
// A bundle is a flat archive of named entries. Every entry is stored
// independently compressed (LZ4 block, zstd, or not at all) and carries a
// BLAKE3 digest of its raw bytes, so a decoder can verify entries one by one
// and report progress as it goes.
//
// # Layout
//
//	magic       [4]byte  "ABND"
//	version     uint16
//	reserved    uint16
//	entryCount  uint32
//	entries     entryCount × {
//	    nameLen     uint16
//	    name        [nameLen]byte
//	    compression uint8
//	    rawSize     uint32
//	    storedSize  uint32
//	    digest      [32]byte   BLAKE3-256 of the raw bytes
//	}
//	payloads    stored bytes of each entry, in table order
//
// All integers are little endian.
//
// # Decoding
//
// NewDecoder starts decoding on a background goroutine (or a caller-supplied
// executor) and is polled through IsFinished/Progress. Dispose(true) cancels
// between entries and waits for the goroutine, so no decode work is running
// once it returns.
package bundle
