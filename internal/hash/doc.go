// Package hash provides the CRC32-Castagnoli checksum used to verify cache
// blobs transferred through a mirror store.
//
// For one-shot checksums:
//
//	sum := hash.CRC32C(data)
//
// For streaming checksums (uploads and downloads):
//
//	h := hash.NewCRC32C()
//	io.Copy(h, r)
//	sum := h.Sum32()
//
// Go's crc32 package uses SSE4.2 or the ARM CRC extension when available.
package hash
