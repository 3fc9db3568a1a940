// Package blobstore stores whole cache blobs in a shared mirror so that one
// machine can rebuild an index and others can fetch it instead of parsing.
//
// A Store keeps immutable objects addressed by name. Each object carries its
// size, modification time and an optional CRC32C checksum (8 hex digits), which
// the caller verifies after download.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map, for tests
//   - LocalStore: a directory, typically on a shared volume
//   - minio.Store: MinIO and other S3-compatible servers
//   - s3.Store: Amazon S3 with multipart uploads
package blobstore
