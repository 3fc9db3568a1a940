// Package s3 provides an Amazon S3 implementation of blobstore.Store.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket", "symcache/")
//
// or, with an existing client:
//
//	store := s3.NewStore(s3.NewFromConfig(cfg), "my-bucket", "symcache/")
//
// Uploads go through the multipart upload manager with CRC32C integrity
// validation. The checksum supplied by the caller is also stored in the
// "crc32c" object metadata so that downloads can be verified end to end.
package s3
