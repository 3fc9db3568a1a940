package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	ifs "github.com/hupe1980/symcache/internal/fs"
	"github.com/hupe1980/symcache/internal/mmap"
)

const checksumSuffix = "." + MetadataChecksum

// LocalStore implements Store on a directory, usually a shared volume.
// Checksums live in "<name>.crc32c" sidecar files.
type LocalStore struct {
	root string
	fsys ifs.FileSystem
}

// NewLocalStore creates a new LocalStore rooted at the given directory.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root, fsys: ifs.Default}
}

// WithFileSystem returns a copy of s that writes through fsys.
func (s *LocalStore) WithFileSystem(fsys ifs.FileSystem) *LocalStore {
	return &LocalStore{root: s.root, fsys: ifs.OrDefault(fsys)}
}

// Root returns the store directory.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) path(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(name)), nil
}

// Stat returns the blob's metadata.
func (s *LocalStore) Stat(ctx context.Context, name string) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}
	p, err := s.path(name)
	if err != nil {
		return Info{}, err
	}
	fi, err := s.fsys.Stat(p)
	if err != nil {
		return Info{}, err
	}
	if fi.IsDir() {
		return Info{}, ErrNotFound
	}

	info := Info{Size: fi.Size(), ModTime: fi.ModTime()}
	if sum, err := ifs.ReadFile(s.fsys, p+checksumSuffix); err == nil {
		info.Checksum = strings.TrimSpace(string(sum))
	}
	return info, nil
}

// Get maps the blob read-only. Closing the reader unmaps it.
func (s *LocalStore) Get(ctx context.Context, name string) (io.ReadCloser, Info, error) {
	info, err := s.Stat(ctx, name)
	if err != nil {
		return nil, Info{}, err
	}
	p, _ := s.path(name)

	m, err := mmap.Open(p)
	if err != nil {
		return nil, Info{}, err
	}
	_ = m.Advise(mmap.AccessSequential)

	return &localReader{Reader: bytes.NewReader(m.Bytes()), m: m}, Info{
		Size:     int64(m.Size()),
		ModTime:  info.ModTime,
		Checksum: info.Checksum,
	}, nil
}

type localReader struct {
	*bytes.Reader
	m *mmap.Mapping
}

func (r *localReader) Close() error {
	r.Reader = bytes.NewReader(nil)
	return r.m.Close()
}

// Put atomically replaces the blob, then its checksum sidecar.
func (s *LocalStore) Put(ctx context.Context, name string, r io.Reader, size int64, checksum string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := s.fsys.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}

	// An old sidecar must never vouch for new content.
	if err := s.fsys.Remove(p + checksumSuffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	err = ifs.WriteAtomic(s.fsys, p, 0o644, func(w io.Writer) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := io.Copy(w, r)
		if err != nil {
			return err
		}
		if size >= 0 && n != size {
			return fmt.Errorf("blobstore: wrote %d bytes, want %d: %w", n, size, io.ErrUnexpectedEOF)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if checksum == "" {
		return nil
	}
	return ifs.WriteAtomic(s.fsys, p+checksumSuffix, 0o644, func(w io.Writer) error {
		_, err := io.WriteString(w, checksum+"\n")
		return err
	})
}

// Delete removes a blob and its sidecar.
func (s *LocalStore) Delete(_ context.Context, name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	for _, target := range []string{p, p + checksumSuffix} {
		if err := s.fsys.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// List returns all blob names with the given prefix.
func (s *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == s.root {
				return filepath.SkipDir
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		base := d.Name()
		if strings.HasSuffix(base, checksumSuffix) || strings.Contains(base, ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, prefix) {
			names = append(names, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

var _ Store = (*LocalStore)(nil)
var _ Store = (*MemoryStore)(nil)
