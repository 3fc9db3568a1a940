package blobstore

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"
)

// ErrNotFound is returned when a blob does not exist.
var ErrNotFound = os.ErrNotExist

// ErrInvalidName is returned for names that are empty or escape the store root.
var ErrInvalidName = errors.New("blobstore: invalid name")

// MetadataChecksum is the object metadata key holding the CRC32C checksum.
const MetadataChecksum = "crc32c"

// Info describes a stored blob.
type Info struct {
	Size    int64
	ModTime time.Time
	// Checksum is the CRC32C of the content as 8 hex digits, or "" if unknown.
	Checksum string
}

// Store is the interface for a blob mirror.
// Implementations must be safe for concurrent use.
type Store interface {
	// Stat returns the blob's metadata or ErrNotFound.
	Stat(ctx context.Context, name string) (Info, error)
	// Get opens the blob for reading. The caller must close the reader.
	Get(ctx context.Context, name string) (io.ReadCloser, Info, error)
	// Put stores size bytes from r under name, replacing any previous blob.
	// A negative size means unknown. checksum is recorded as-is.
	Put(ctx context.Context, name string, r io.Reader, size int64, checksum string) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the sorted names that start with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// ValidateName rejects names that are empty, absolute or contain "..".
func ValidateName(name string) error {
	if name == "" || strings.HasPrefix(name, "/") || strings.HasPrefix(name, "\\") {
		return ErrInvalidName
	}
	for _, part := range strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return ErrInvalidName
		}
	}
	return nil
}

// ReadAll fetches a whole blob.
func ReadAll(ctx context.Context, s Store, name string) ([]byte, Info, error) {
	rc, info, err := s.Get(ctx, name)
	if err != nil {
		return nil, Info{}, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, Info{}, err
	}
	return data, info, nil
}
