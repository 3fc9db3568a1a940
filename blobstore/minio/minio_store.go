package minio

import (
	"context"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/hupe1980/symcache/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store implements blobstore.Store for MinIO and S3-compatible storage.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewStore creates a new MinIO blob store.
// bucket is the MinIO bucket name.
// rootPrefix is prepended to all keys (e.g. "caches/").
func NewStore(client *minio.Client, bucket, rootPrefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(rootPrefix, "/"),
	}
}

// NewFromEnv connects to endpoint with credentials taken from the MinIO or
// AWS environment variables.
func NewFromEnv(endpoint, bucket, rootPrefix string, secure bool) (*Store, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds: credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvMinio{},
			&credentials.EnvAWS{},
		}),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}
	return NewStore(client, bucket, rootPrefix), nil
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

// metadata looks up a user metadata entry regardless of header casing.
func metadata(m map[string]string, key string) string {
	for k, v := range m {
		if strings.EqualFold(strings.TrimPrefix(strings.ToLower(k), "x-amz-meta-"), key) {
			return v
		}
	}
	return ""
}

func toInfo(oi minio.ObjectInfo) blobstore.Info {
	return blobstore.Info{
		Size:     oi.Size,
		ModTime:  oi.LastModified,
		Checksum: metadata(oi.UserMetadata, blobstore.MetadataChecksum),
	}
}

// Stat returns the object's metadata.
func (s *Store) Stat(ctx context.Context, name string) (blobstore.Info, error) {
	if err := blobstore.ValidateName(name); err != nil {
		return blobstore.Info{}, err
	}
	oi, err := s.client.StatObject(ctx, s.bucket, s.key(name), minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return blobstore.Info{}, blobstore.ErrNotFound
		}
		return blobstore.Info{}, err
	}
	return toInfo(oi), nil
}

// Get streams the object. The object is stat'ed first so a missing key is
// reported here rather than on the first Read.
func (s *Store) Get(ctx context.Context, name string) (io.ReadCloser, blobstore.Info, error) {
	info, err := s.Stat(ctx, name)
	if err != nil {
		return nil, blobstore.Info{}, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(name), minio.GetObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, blobstore.Info{}, blobstore.ErrNotFound
		}
		return nil, blobstore.Info{}, err
	}
	return obj, info, nil
}

// Put uploads the object, recording checksum as user metadata.
func (s *Store) Put(ctx context.Context, name string, r io.Reader, size int64, checksum string) error {
	if err := blobstore.ValidateName(name); err != nil {
		return err
	}
	opts := minio.PutObjectOptions{ContentType: "application/octet-stream"}
	if checksum != "" {
		opts.UserMetadata = map[string]string{blobstore.MetadataChecksum: checksum}
	}
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), r, size, opts)
	return err
}

// Delete removes an object.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.key(name), minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// List returns all object names with the given prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	fullPrefix := prefix
	if s.prefix != "" {
		fullPrefix = s.prefix + "/" + prefix
	}

	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    fullPrefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		name := strings.TrimPrefix(obj.Key, s.prefix)
		name = strings.TrimPrefix(name, "/")
		if name != "" {
			names = append(names, name)
		}
	}

	sort.Strings(names)
	return names, nil
}

var _ blobstore.Store = (*Store)(nil)
