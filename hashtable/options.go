package hashtable

import "github.com/hupe1980/symcache/internal/mem"

const (
	// DefaultBuckets is the bucket count of a new table.
	DefaultBuckets = 4
	// DefaultBucketCapacity is the initial element capacity of every bucket.
	DefaultBucketCapacity = 4

	// BucketHeaderSize and ElementHeaderSize are the nominal sizes charged
	// per bucket and per element slot.
	BucketHeaderSize  = 16
	ElementHeaderSize = 16
)

type options struct {
	alloc   mem.Allocator
	buckets int
}

// Option configures a Table.
type Option func(*options)

// WithAllocator charges table memory against a. A nil allocator disables
// accounting.
func WithAllocator(a mem.Allocator) Option {
	return func(o *options) {
		o.alloc = a
	}
}

// WithInitialBuckets sets the starting bucket count. Values below 1 are ignored.
func WithInitialBuckets(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.buckets = n
		}
	}
}
