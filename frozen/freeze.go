package frozen

import (
	"fmt"

	"github.com/hupe1980/symcache/hashtable"
	"github.com/hupe1980/symcache/internal/conv"
	"github.com/hupe1980/symcache/internal/mem"
)

// Size returns the number of bytes Freeze allocates for t.
func Size(t *hashtable.Table) int {
	size := stringsStart(t.BucketCount(), t.Len())
	t.Range(func(e *hashtable.Element) bool {
		size += len(e.Key()) + 1
		if v, ok := e.Value(); ok {
			size += len(v) + 1
		}
		return true
	})
	return size
}

// Freeze copies t into a single allocation sized exactly by Size. On error
// no Map is returned and nothing stays allocated.
func Freeze(t *hashtable.Table, optFns ...Option) (*Map, error) {
	o := applyOptions(optFns)

	bc, ec := t.BucketCount(), t.Len()
	if bc == 0 {
		return nil, ErrNoBuckets
	}
	if _, err := conv.IntToUint32(bc); err != nil {
		return nil, fmt.Errorf("frozen: bucket count: %w", err)
	}
	if _, err := conv.IntToUint32(ec); err != nil {
		return nil, fmt.Errorf("frozen: element count: %w", err)
	}

	buf, err := o.alloc.Alloc(Size(t))
	if err != nil {
		return nil, fmt.Errorf("frozen: %w", err)
	}
	base := mem.Addr(buf)

	elemOff := elementsStart(bc)
	strOff := stringsStart(bc, ec)

	for i := 0; i < bc; i++ {
		elems := t.Bucket(i)
		n := uint32(len(elems)) //nolint:gosec // bounded by ec
		writeBucket(buf, i, bucketHeader{data: base + uint64(elemOff), size: n, cap: n})

		for j := range elems {
			e := &elems[j]

			le.PutUint64(buf[elemOff:], base+uint64(strOff))
			strOff += copy(buf[strOff:], e.Key())
			buf[strOff] = 0
			strOff++

			var value uint64
			if v, ok := e.Value(); ok {
				value = base + uint64(strOff)
				strOff += copy(buf[strOff:], v)
				buf[strOff] = 0
				strOff++
			}
			le.PutUint64(buf[elemOff+8:], value)

			elemOff += ElementHeaderSize
		}
	}

	return &Map{
		buf:      buf,
		base:     base,
		buckets:  bc,
		elements: ec,
		alloc:    o.alloc,
	}, nil
}
