// Package mmap provides read-only memory-mapped file access.
//
// The persistent blob store maps bundle files instead of streaming them
// through read(2): the fetch path copies the mapped bytes once into a buffer
// owned by the fetcher and unmaps immediately afterwards, so a mapping never
// outlives a single fetch.
//
//	m, err := mmap.Open("ui.bundle")
//	if err != nil { ... }
//	defer m.Close()
//
//	_ = m.Advise(mmap.AccessSequential)
//	buf := m.Copy()
//
// Unix uses mmap(2)/madvise(2); Windows uses CreateFileMapping/MapViewOfFile
// and treats Advise as a no-op.
package mmap
