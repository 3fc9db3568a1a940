package frozen

import "github.com/hupe1980/symcache/internal/mem"

type options struct {
	alloc mem.Allocator
}

// Option configures Freeze and Adopt.
type Option func(*options)

// WithAllocator sets the allocator the Map's buffer comes from and is
// returned to on Release. Defaults to mem.Heap.
func WithAllocator(a mem.Allocator) Option {
	return func(o *options) {
		o.alloc = a
	}
}

func applyOptions(optFns []Option) options {
	var o options
	for _, fn := range optFns {
		fn(&o)
	}
	o.alloc = mem.OrHeap(o.alloc)
	return o
}
