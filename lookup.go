package symcache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/hupe1980/symcache/codec"
	"github.com/hupe1980/symcache/frozen"
	"github.com/hupe1980/symcache/hashtable"
)

// Result is the outcome of a lookup.
type Result struct {
	Symbol string
	Source string
	// Status is how the cache was made current for this lookup.
	Status Status
	// Paths are the full library paths defining Symbol, in dump order.
	Paths []string
}

// Found reports whether any library defines the symbol.
func (r *Result) Found() bool { return len(r.Paths) > 0 }

// Libraries returns the file names of Paths (the part after the last '/' or
// '\'), without duplicates, in first-seen order.
func (r *Result) Libraries() ([]string, error) {
	if len(r.Paths) == 0 {
		return nil, nil
	}

	seen, err := hashtable.New()
	if err != nil {
		return nil, err
	}
	defer seen.Free()

	libs := make([]string, 0, len(r.Paths))
	for _, p := range r.Paths {
		name := p[strings.LastIndexAny(p, `/\`)+1:]
		e, err := seen.GetOrInsert(name)
		if err != nil {
			return nil, err
		}
		if e.HasValue() {
			continue
		}
		if err := e.SetValue(""); err != nil {
			return nil, err
		}
		libs = append(libs, name)
	}
	return libs, nil
}

// Names returns Paths when full is set and Libraries otherwise.
func (r *Result) Names(full bool) ([]string, error) {
	if full {
		return r.Paths, nil
	}
	return r.Libraries()
}

// Open makes the cache of source current and loads it. A cache that fails
// validation is rebuilt once. The caller must Release the map.
func (ix *Index) Open(ctx context.Context, source string) (*frozen.Map, Status, error) {
	status, err := ix.Ensure(ctx, source)
	if err != nil {
		return nil, status, err
	}

	cache := ix.CachePath(source)
	m, err := ix.load(cache)
	if err == nil || !errors.Is(err, codec.ErrCorrupt) {
		return m, status, err
	}

	ix.opts.logger.WithSource(source).WarnContext(ctx, "cache corrupt, rebuilding",
		"cache", cache,
		"error", err,
	)
	if status, err = ix.ensure(ctx, source, true); err != nil {
		return nil, status, err
	}
	m, err = ix.load(cache)
	return m, status, err
}

func (ix *Index) load(cache string) (*frozen.Map, error) {
	m, err := codec.DecodeFile(cache, codec.WithAllocator(ix.opts.allocator))
	if err != nil {
		var pe *fs.PathError
		if errors.As(err, &pe) {
			return nil, &IOError{Op: "read", Path: cache, Err: err}
		}
		return nil, fmt.Errorf("load %s: %w", cache, err)
	}
	return m, nil
}

// Lookup returns the libraries of source that define symbol. Keys are
// matched exactly and case-sensitively; a missing symbol is not an error.
func (ix *Index) Lookup(ctx context.Context, source, symbol string) (*Result, error) {
	start := time.Now()
	res, err := ix.lookup(ctx, source, symbol)
	ix.opts.metricsCollector.RecordLookup(err == nil && res.Found(), time.Since(start), err)
	return res, err
}

func (ix *Index) lookup(ctx context.Context, source, symbol string) (*Result, error) {
	m, status, err := ix.Open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer m.Release()

	res := &Result{Symbol: symbol, Source: source, Status: status}
	if v, ok := m.Value(symbol); ok {
		res.Paths = strings.Split(v, "\n")
	}
	return res, nil
}
