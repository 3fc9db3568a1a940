package frozen

import (
	"bytes"
	"fmt"

	"github.com/hupe1980/symcache/internal/mem"
)

// Adopt wraps buf, whose address fields are already relative to its own
// start address, as a Map of the given shape. buf is validated first; on
// error the caller keeps ownership of buf. On success the Map owns it and
// Release returns it to the configured allocator.
func Adopt(buf []byte, buckets, elements int, optFns ...Option) (*Map, error) {
	o := applyOptions(optFns)

	m := &Map{
		buf:      buf,
		base:     mem.Addr(buf),
		buckets:  buckets,
		elements: elements,
		alloc:    o.alloc,
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// validate checks that every address field points into the buffer, that
// bucket element ranges lie within the element array, and that every string is
// NUL-terminated.
func (m *Map) validate() error {
	if m.buckets <= 0 || m.elements < 0 {
		return invalid("shape %d buckets, %d elements", m.buckets, m.elements)
	}
	elemStart := elementsStart(m.buckets)
	strStart := stringsStart(m.buckets, m.elements)
	if len(m.buf) < strStart {
		return invalid("buffer of %d bytes shorter than headers (%d)", len(m.buf), strStart)
	}

	total := 0
	for i := 0; i < m.buckets; i++ {
		h := readBucket(m.buf, i)
		if h.size != h.cap {
			return invalid("bucket %d: size %d != cap %d", i, h.size, h.cap)
		}
		if total += int(h.size); total > m.elements {
			return invalid("bucket sizes exceed %d elements", m.elements)
		}
		off, ok := m.inRange(h.data, elemStart, strStart+1)
		if !ok || (off-elemStart)%ElementHeaderSize != 0 {
			return invalid("bucket %d: data address %#x outside element array", i, h.data)
		}
		if off+int(h.size)*ElementHeaderSize > strStart {
			return invalid("bucket %d: %d elements overrun element array", i, h.size)
		}
	}
	if total != m.elements {
		return invalid("bucket sizes sum to %d, want %d", total, m.elements)
	}

	for i := 0; i < m.elements; i++ {
		elemOff := elemStart + i*ElementHeaderSize
		if err := m.checkString(le.Uint64(m.buf[elemOff:]), strStart, false); err != nil {
			return fmt.Errorf("element %d key: %w", i, err)
		}
		if err := m.checkString(le.Uint64(m.buf[elemOff+8:]), strStart, true); err != nil {
			return fmt.Errorf("element %d value: %w", i, err)
		}
	}
	return nil
}

// inRange translates addr to an offset in [lo, hi).
func (m *Map) inRange(addr uint64, lo, hi int) (int, bool) {
	if addr < m.base {
		return 0, false
	}
	rel := addr - m.base
	if rel < uint64(lo) || rel >= uint64(hi) {
		return 0, false
	}
	return int(rel), true //nolint:gosec // < hi
}

func (m *Map) checkString(addr uint64, strStart int, optional bool) error {
	if addr == 0 && optional {
		return nil
	}
	off, ok := m.inRange(addr, strStart, len(m.buf))
	if !ok {
		return invalid("address %#x outside string area", addr)
	}
	if bytes.IndexByte(m.buf[off:], 0) < 0 {
		return invalid("unterminated string at offset %d", off)
	}
	return nil
}
