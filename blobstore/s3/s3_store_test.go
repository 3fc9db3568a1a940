package s3

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/hupe1980/symcache/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_S3Store(t *testing.T) {
	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		t.Skip("Skipping S3 integration test: S3_BUCKET not set")
	}

	ctx := context.Background()
	prefix := fmt.Sprintf("test-symcache-%d/", time.Now().UnixNano())
	store, err := New(ctx, bucket, prefix)
	require.NoError(t, err)

	data := make([]byte, 1024*1024)
	_, _ = rand.Read(data)

	require.NoError(t, store.Put(ctx, "symbols_lib.bin", bytes.NewReader(data), int64(len(data)), "89abcdef"))
	defer func() { _ = store.Delete(ctx, "symbols_lib.bin") }()

	info, err := store.Stat(ctx, "symbols_lib.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), info.Size)
	assert.Equal(t, "89abcdef", info.Checksum)

	got, _, err := blobstore.ReadAll(ctx, store, "symbols_lib.bin")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"symbols_lib.bin"}, names)
}
