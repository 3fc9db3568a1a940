// Package mmap provides read-only file mappings and anonymous mappings.
//
// # Usage
//
//	m, err := mmap.Open("index/symbols_lib.bin")
//	if err != nil { ... }
//	defer m.Close()
//
//	data := m.Bytes()
//
// Cache files are mapped only long enough to copy their payload into a fresh
// allocation, so callers normally pair Open with a deferred Close and never
// retain slices of Bytes().
//
// # Anonymous Mappings
//
// MapAnon returns read-write memory outside the Go heap. The mmap allocator in
// internal/mem uses it for frozen maps and decode destinations.
//
// # Platform Support
//
//   - Unix: mmap(2) and madvise(2)
//   - Windows: CreateFileMapping/MapViewOfFile and VirtualAlloc (advice is a no-op)
package mmap
