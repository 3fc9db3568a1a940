package symcache

import (
	"fmt"

	"github.com/hupe1980/symcache/blobstore"
	ifs "github.com/hupe1980/symcache/internal/fs"
	"github.com/hupe1980/symcache/internal/mem"
	"github.com/hupe1980/symcache/resource"
)

// DefaultDir is the default directory of symbol dumps and their caches.
const DefaultDir = "index"

// Allocator supplies the memory of frozen maps.
type Allocator = mem.Allocator

// NewAllocator returns the allocator named "heap", "aligned" or "mmap".
func NewAllocator(name string) (Allocator, error) {
	switch name {
	case "", "heap":
		return mem.Heap{}, nil
	case "aligned":
		return mem.Aligned{}, nil
	case "mmap":
		return mem.NewMmap(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAllocator, name)
	}
}

type options struct {
	sourceDir        string
	cacheDir         string
	fs               ifs.FileSystem
	allocator        Allocator
	resources        *resource.Controller
	mirror           blobstore.Store
	push             bool
	logger           *Logger
	metricsCollector MetricsCollector
}

// Option configures an Index.
type Option func(*options)

// WithSourceDir sets the directory holding the symbol dumps that Find reads.
// Default: "index".
func WithSourceDir(dir string) Option {
	return func(o *options) {
		o.sourceDir = dir
	}
}

// WithCacheDir sets where cache files are written.
// Default: "index". An empty dir places each cache next to its dump.
func WithCacheDir(dir string) Option {
	return func(o *options) {
		o.cacheDir = dir
	}
}

// WithFileSystem routes dump reads and cache writes through fsys.
func WithFileSystem(fsys ifs.FileSystem) Option {
	return func(o *options) {
		o.fs = fsys
	}
}

// WithAllocator sets the allocator for frozen maps (see NewAllocator).
func WithAllocator(a Allocator) Option {
	return func(o *options) {
		o.allocator = a
	}
}

// WithResourceController meters frozen-map memory against rc and paces
// mirror transfers.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithMirror attaches a shared cache mirror.
func WithMirror(store blobstore.Store) Option {
	return func(o *options) {
		o.mirror = store
	}
}

// WithPush uploads every locally rebuilt cache to the mirror.
func WithPush(enabled bool) Option {
	return func(o *options) {
		o.push = enabled
	}
}

// WithLogger sets the logger. If nil, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetricsCollector sets a metrics collector.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		sourceDir: DefaultDir,
		cacheDir:  DefaultDir,
	}
	for _, fn := range optFns {
		fn(&o)
	}

	o.fs = ifs.OrDefault(o.fs)
	o.allocator = mem.OrHeap(o.allocator)
	if o.resources != nil {
		o.allocator = mem.NewBudgeted(o.allocator, o.resources)
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	return o
}
