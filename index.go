package symcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hupe1980/symcache/codec"
	"github.com/hupe1980/symcache/frozen"
	"github.com/hupe1980/symcache/hashtable"
	"github.com/hupe1980/symcache/internal/flock"
	ifs "github.com/hupe1980/symcache/internal/fs"
	"github.com/hupe1980/symcache/internal/hash"
	"github.com/hupe1980/symcache/internal/symfile"
	"golang.org/x/sync/singleflight"
)

// CacheExt is the extension of cache files.
const CacheExt = ".bin"

// Status reports how Ensure made a cache current.
type Status int

const (
	// StatusFresh means the existing cache was reused untouched.
	StatusFresh Status = iota
	// StatusRebuilt means the cache was rebuilt from the dump.
	StatusRebuilt
	// StatusFetched means the cache was downloaded from the mirror.
	StatusFetched
)

func (s Status) String() string {
	switch s {
	case StatusFresh:
		return "fresh"
	case StatusRebuilt:
		return "rebuilt"
	case StatusFetched:
		return "fetched"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Index manages the cache files of symbol dumps.
//
// It is safe for concurrent use. Rebuilds of one cache are coalesced within
// the process and serialized across processes by a lock file.
type Index struct {
	opts  options
	group singleflight.Group
}

// New creates an Index.
func New(optFns ...Option) *Index {
	return &Index{opts: applyOptions(optFns)}
}

// CachePath returns the cache file of source: the source's stem with a
// ".bin" extension, inside the cache directory.
func (ix *Index) CachePath(source string) string {
	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	dir := ix.opts.cacheDir
	if dir == "" {
		dir = filepath.Dir(source)
	}
	return filepath.Join(dir, stem+CacheExt)
}

// Ensure makes the cache of source current. The cache is rebuilt when it is
// missing or older than source, and left untouched otherwise.
func (ix *Index) Ensure(ctx context.Context, source string) (Status, error) {
	start := time.Now()
	status, err := ix.ensure(ctx, source, false)
	ix.opts.metricsCollector.RecordEnsure(status, time.Since(start), err)
	ix.opts.logger.WithSource(source).LogEnsure(ctx, ix.CachePath(source), status, err)
	return status, err
}

func (ix *Index) ensure(ctx context.Context, source string, force bool) (Status, error) {
	cache := ix.CachePath(source)
	if !force {
		stale, _, err := ix.stale(source, cache)
		if err != nil {
			return StatusFresh, err
		}
		if !stale {
			return StatusFresh, nil
		}
	}

	v, err, _ := ix.group.Do(cache, func() (any, error) {
		return ix.rebuild(ctx, source, cache, force)
	})
	if err != nil {
		return StatusFresh, err
	}
	return v.(Status), nil
}

func (ix *Index) statSource(source string) (os.FileInfo, error) {
	fi, err := ix.opts.fs.Stat(source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %w", ErrSourceNotFound, err)
		}
		return nil, &IOError{Op: "stat", Path: source, Err: err}
	}
	return fi, nil
}

// stale reports whether cache must be rebuilt, along with the source mtime.
func (ix *Index) stale(source, cache string) (bool, time.Time, error) {
	src, err := ix.statSource(source)
	if err != nil {
		return false, time.Time{}, err
	}
	fi, err := ix.opts.fs.Stat(cache)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return true, src.ModTime(), nil
		}
		return false, time.Time{}, &IOError{Op: "stat", Path: cache, Err: err}
	}
	return src.ModTime().After(fi.ModTime()), src.ModTime(), nil
}

func (ix *Index) rebuild(ctx context.Context, source, cache string, force bool) (Status, error) {
	if err := ix.opts.fs.MkdirAll(filepath.Dir(cache), 0o755); err != nil {
		return StatusFresh, &IOError{Op: "mkdir", Path: filepath.Dir(cache), Err: err}
	}

	lock, err := flock.Acquire(ctx, cache+".lock")
	if err != nil {
		return StatusFresh, &IOError{Op: "lock", Path: cache + ".lock", Err: err}
	}
	defer func() { _ = lock.Unlock() }()

	// Another process may have finished the rebuild while we waited.
	stale, srcMod, err := ix.stale(source, cache)
	if err != nil {
		return StatusFresh, err
	}
	if !stale && !force {
		return StatusFresh, nil
	}

	if ix.opts.mirror != nil && ix.fetch(ctx, source, cache, srcMod) {
		return StatusFetched, nil
	}

	sum, err := ix.build(ctx, source, cache)
	if err != nil {
		return StatusFresh, err
	}

	if ix.opts.mirror != nil && ix.opts.push {
		ix.push(ctx, source, cache, sum)
	}
	return StatusRebuilt, nil
}

// build parses source and atomically replaces cache. It returns the CRC32C
// of the written file.
func (ix *Index) build(ctx context.Context, source, cache string) (uint32, error) {
	start := time.Now()
	log := ix.opts.logger.WithSource(source)

	m, err := ix.freeze(source)
	if err != nil {
		ix.opts.metricsCollector.RecordRebuild(0, 0, time.Since(start), err)
		log.LogRebuild(ctx, cache, 0, 0, time.Since(start), err)
		return 0, err
	}
	defer m.Release()

	crc := hash.NewCRC32C()
	var size int64
	err = ifs.WriteAtomic(ix.opts.fs, cache, 0o644, func(w io.Writer) error {
		n, err := codec.Encode(io.MultiWriter(w, crc), m)
		size = n
		return err
	})
	if err != nil {
		err = &IOError{Op: "write", Path: cache, Err: err}
	}

	ix.opts.metricsCollector.RecordRebuild(m.Len(), size, time.Since(start), err)
	log.LogRebuild(ctx, cache, m.Len(), size, time.Since(start), err)
	return crc.Sum32(), err
}

// freeze parses source into a frozen map.
func (ix *Index) freeze(source string) (*frozen.Map, error) {
	f, err := ix.opts.fs.OpenFile(source, os.O_RDONLY, 0)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %w", ErrSourceNotFound, err)
		}
		return nil, &IOError{Op: "open", Path: source, Err: err}
	}
	defer f.Close()

	t, err := hashtable.New(hashtable.WithAllocator(ix.opts.allocator))
	if err != nil {
		return nil, err
	}
	defer t.Free()

	if _, err := symfile.Parse(f, t); err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}
	return frozen.Freeze(t, frozen.WithAllocator(ix.opts.allocator))
}
