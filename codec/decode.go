package codec

import (
	"errors"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/symcache/frozen"
	"github.com/hupe1980/symcache/internal/mem"
	"github.com/hupe1980/symcache/internal/mmap"
)

type options struct {
	alloc mem.Allocator
}

// Option configures decoding.
type Option func(*options)

// WithAllocator sets the allocator for the decoded map. Defaults to mem.Heap.
func WithAllocator(a mem.Allocator) Option {
	return func(o *options) {
		o.alloc = a
	}
}

// Decode relocates an encoded map into a fresh allocation. The result never
// aliases data.
func Decode(data []byte, optFns ...Option) (*frozen.Map, error) {
	var o options
	for _, fn := range optFns {
		fn(&o)
	}
	o.alloc = mem.OrHeap(o.alloc)

	h, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	l, err := h.layout(len(data))
	if err != nil {
		return nil, err
	}
	payload := data[l.tableEnd:]

	slots, err := readSlots(data[HeaderSize:l.tableEnd], payload, h.Anchor)
	if err != nil {
		return nil, err
	}

	dst, err := o.alloc.Alloc(l.payloadLen)
	if err != nil {
		return nil, err
	}
	copy(dst, payload)

	base := mem.Addr(dst)
	for _, off := range slots {
		if stale := le.Uint64(dst[off:]); stale != 0 {
			le.PutUint64(dst[off:], base+(stale-h.Anchor))
		}
	}

	m, err := frozen.Adopt(dst, l.buckets, l.elements, frozen.WithAllocator(o.alloc))
	if err != nil {
		o.alloc.Free(dst)
		if errors.Is(err, frozen.ErrInvalid) {
			return nil, corrupt("%v", err)
		}
		return nil, err
	}
	return m, nil
}

// readSlots validates the slot table against the payload and returns the
// offsets. Every offset must be 8-aligned, in bounds and unique, and every
// non-zero field it names must lie within [anchor, anchor+len(payload)].
func readSlots(table, payload []byte, anchor uint64) ([]int, error) {
	n := len(table) / SlotSize
	slots := make([]int, n)
	seen := roaring64.New()
	limit := uint64(len(payload))

	for i := 0; i < n; i++ {
		off := le.Uint64(table[i*SlotSize:])
		if off%SlotSize != 0 {
			return nil, corrupt("slot %d: misaligned offset %d", i, off)
		}
		if off > limit || limit-off < SlotSize {
			return nil, corrupt("slot %d: offset %d outside %d byte payload", i, off, limit)
		}
		if !seen.CheckedAdd(off / SlotSize) {
			return nil, corrupt("slot %d: duplicate offset %d", i, off)
		}

		stale := le.Uint64(payload[off:])
		if stale != 0 && (stale < anchor || stale-anchor > limit) {
			return nil, corrupt("slot %d: address %#x outside anchor range", i, stale)
		}
		slots[i] = int(off) //nolint:gosec // < len(payload)
	}
	return slots, nil
}

// DecodeFile maps the file at path read-only, decodes it and unmaps it.
func DecodeFile(path string, optFns ...Option) (*frozen.Map, error) {
	mapping, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	defer mapping.Close()

	data := mapping.Bytes()
	if len(data) > HeaderSize {
		if r, err := mapping.Region(HeaderSize, len(data)-HeaderSize); err == nil {
			_ = r.Advise(mmap.AccessSequential)
		}
	}
	return Decode(data, optFns...)
}
