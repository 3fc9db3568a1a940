package symcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/hupe1980/symcache/blobstore"
	"github.com/hupe1980/symcache/codec"
	ifs "github.com/hupe1980/symcache/internal/fs"
	"github.com/hupe1980/symcache/internal/hash"
	"github.com/hupe1980/symcache/internal/mem"
	"github.com/hupe1980/symcache/resource"
)

// fetch installs the mirrored copy of cache when it is newer than the
// source. Failures are logged and reported as false so the caller can fall
// back to a local rebuild.
func (ix *Index) fetch(ctx context.Context, source, cache string, srcMod time.Time) bool {
	name := filepath.Base(cache)
	log := ix.opts.logger.WithSource(source)

	info, err := ix.opts.mirror.Stat(ctx, name)
	if err != nil {
		if !errors.Is(err, blobstore.ErrNotFound) {
			ix.opts.metricsCollector.RecordFetch(0, 0, err)
			log.LogFetch(ctx, name, 0, err)
		}
		return false
	}
	if !info.ModTime.After(srcMod) {
		log.DebugContext(ctx, "mirror copy is older than source",
			"object", name,
			"mirrored", info.ModTime,
		)
		return false
	}

	start := time.Now()
	size, err := ix.download(ctx, name, cache)
	ix.opts.metricsCollector.RecordFetch(size, time.Since(start), err)
	log.LogFetch(ctx, name, size, err)
	return err == nil
}

func (ix *Index) download(ctx context.Context, name, cache string) (int64, error) {
	rc := ix.opts.resources

	body, info, err := ix.opts.mirror.Get(ctx, name)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	if info.Size > 0 {
		if !rc.TryAcquireMemory(info.Size) {
			return 0, fmt.Errorf("%w: mirror object of %d bytes over budget", mem.ErrAllocationFailed, info.Size)
		}
		defer rc.ReleaseMemory(info.Size)
	}

	data, err := io.ReadAll(resource.NewRateLimitedReader(ctx, body, rc))
	if err != nil {
		return 0, err
	}
	if info.Size > 0 && int64(len(data)) != info.Size {
		return 0, fmt.Errorf("%s: read %d of %d bytes: %w", name, len(data), info.Size, io.ErrUnexpectedEOF)
	}

	if info.Checksum != "" {
		want, err := hash.Parse(info.Checksum)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %w", ErrChecksumMismatch, name, err)
		}
		if got := hash.CRC32C(data); got != want {
			return 0, fmt.Errorf("%w: %s: got %s, want %s", ErrChecksumMismatch, name, hash.Format(got), info.Checksum)
		}
	}

	// Never install a blob that would not load.
	m, err := codec.Decode(data, codec.WithAllocator(ix.opts.allocator))
	if err != nil {
		return 0, err
	}
	m.Release()

	err = ifs.WriteAtomic(ix.opts.fs, cache, 0o644, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		return 0, &IOError{Op: "write", Path: cache, Err: err}
	}
	return int64(len(data)), nil
}

// push uploads a freshly written cache. Failures are logged only; the local
// cache is already usable.
func (ix *Index) push(ctx context.Context, source, cache string, sum uint32) {
	name := filepath.Base(cache)
	start := time.Now()
	size, err := ix.upload(ctx, cache, name, sum)
	ix.opts.metricsCollector.RecordPush(size, time.Since(start), err)
	ix.opts.logger.WithSource(source).LogPush(ctx, name, size, err)
}

func (ix *Index) upload(ctx context.Context, cache, name string, sum uint32) (int64, error) {
	f, err := ix.opts.fs.OpenFile(cache, os.O_RDONLY, 0)
	if err != nil {
		return 0, &IOError{Op: "open", Path: cache, Err: err}
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return 0, &IOError{Op: "stat", Path: cache, Err: err}
	}

	r := resource.NewRateLimitedReader(ctx, f, ix.opts.resources)
	if err := ix.opts.mirror.Put(ctx, name, r, fi.Size(), hash.Format(sum)); err != nil {
		return 0, err
	}
	return fi.Size(), nil
}
