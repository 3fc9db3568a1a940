// Package minio provides a blobstore.Store backed by MinIO or any other
// S3-compatible server, using the MinIO client.
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "symbols", "caches/")
//
// Credentials can also come from the environment (MINIO_ACCESS_KEY or
// AWS_ACCESS_KEY_ID and friends) via NewFromEnv.
//
// Checksums are kept in the "crc32c" user metadata entry.
package minio
