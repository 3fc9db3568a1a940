package blobstore

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store implementation for testing.
// Thread-safe for concurrent reads and writes.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]memoryBlob
	now   func() time.Time
}

type memoryBlob struct {
	data     []byte
	modTime  time.Time
	checksum string
}

// NewMemoryStore creates a new in-memory blob store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: make(map[string]memoryBlob),
		now:   time.Now,
	}
}

// SetModTime overrides the modification time of an existing blob.
func (m *MemoryStore) SetModTime(name string, t time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.blobs[name]
	if !ok {
		return false
	}
	b.modTime = t
	m.blobs[name] = b
	return true
}

// Stat returns the blob's metadata.
func (m *MemoryStore) Stat(ctx context.Context, name string) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.blobs[name]
	if !ok {
		return Info{}, ErrNotFound
	}
	return b.info(), nil
}

// Get returns a reader over a copy of the blob.
func (m *MemoryStore) Get(ctx context.Context, name string) (io.ReadCloser, Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, Info{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.blobs[name]
	if !ok {
		return nil, Info{}, ErrNotFound
	}
	copied := bytes.Clone(b.data)
	return io.NopCloser(bytes.NewReader(copied)), b.info(), nil
}

// Put stores the content of r.
func (m *MemoryStore) Put(ctx context.Context, name string, r io.Reader, size int64, checksum string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if size >= 0 && int64(len(data)) != size {
		return io.ErrUnexpectedEOF
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.blobs[name] = memoryBlob{data: data, modTime: m.now(), checksum: checksum}
	return nil
}

// Delete removes a blob.
func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.blobs, name)
	return nil
}

// List returns all blobs matching the prefix.
func (m *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string
	for name := range m.blobs {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (b memoryBlob) info() Info {
	return Info{Size: int64(len(b.data)), ModTime: b.modTime, Checksum: b.checksum}
}
