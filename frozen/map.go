package frozen

import (
	"bytes"

	"github.com/hupe1980/symcache/hashtable"
	"github.com/hupe1980/symcache/internal/mem"
)

// Entry is a key with its optional value.
type Entry struct {
	Key      string
	Value    string
	HasValue bool
}

// Map is an immutable hash map stored in one buffer. It is safe for
// concurrent readers; Release must not race with them.
type Map struct {
	buf      []byte
	base     uint64
	buckets  int
	elements int
	alloc    mem.Allocator
}

// Len returns the number of elements.
func (m *Map) Len() int { return m.elements }

// BucketCount returns the number of buckets.
func (m *Map) BucketCount() int { return m.buckets }

// Size returns the size of the backing buffer in bytes.
func (m *Map) Size() int { return len(m.buf) }

// Base returns the address all address fields are relative to.
func (m *Map) Base() uint64 { return m.base }

// Bytes returns the backing buffer. It must not be modified.
func (m *Map) Bytes() []byte { return m.buf }

// offset translates an address field into a buffer offset.
// Adopt and Freeze guarantee every stored address is in range.
func (m *Map) offset(addr uint64) int {
	return int(addr - m.base) //nolint:gosec // validated on construction
}

func (m *Map) cstring(addr uint64) []byte {
	off := m.offset(addr)
	end := bytes.IndexByte(m.buf[off:], 0)
	return m.buf[off : off+end]
}

func (m *Map) entry(elemOff int) Entry {
	key := le.Uint64(m.buf[elemOff:])
	val := le.Uint64(m.buf[elemOff+8:])
	e := Entry{Key: string(m.cstring(key))}
	if val != 0 {
		e.Value, e.HasValue = string(m.cstring(val)), true
	}
	return e
}

func (m *Map) locate(key string) (int, bool) {
	if m.buckets == 0 || m.buf == nil {
		return 0, false
	}
	h := readBucket(m.buf, int(hashtable.Hash(key)%uint64(m.buckets))) //nolint:gosec // < buckets
	off := m.offset(h.data)
	for i := 0; i < int(h.size); i++ {
		elemOff := off + i*ElementHeaderSize
		if string(m.cstring(le.Uint64(m.buf[elemOff:]))) == key {
			return elemOff, true
		}
	}
	return 0, false
}

// Find returns the entry for key.
func (m *Map) Find(key string) (Entry, bool) {
	off, ok := m.locate(key)
	if !ok {
		return Entry{}, false
	}
	return m.entry(off), true
}

// Value returns the value of key. ok is false when the key is missing or
// has no value.
func (m *Map) Value(key string) (string, bool) {
	e, ok := m.Find(key)
	if !ok || !e.HasValue {
		return "", false
	}
	return e.Value, true
}

// Range calls fn for every entry in bucket order until fn returns false.
func (m *Map) Range(fn func(Entry) bool) {
	if m.buf == nil {
		return
	}
	start := elementsStart(m.buckets)
	for i := 0; i < m.elements; i++ {
		if !fn(m.entry(start + i*ElementHeaderSize)) {
			return
		}
	}
}

// SlotCount returns the number of address fields: one per bucket and two
// per element.
func (m *Map) SlotCount() int {
	return m.buckets + 2*m.elements
}

// Slots returns the byte offset of every address field: bucket data fields
// in bucket order, then the key and value fields of each element in layout
// order. Absent values keep their slot.
func (m *Map) Slots() []uint64 {
	slots := make([]uint64, 0, m.SlotCount())
	for i := 0; i < m.buckets; i++ {
		slots = append(slots, uint64(i*BucketHeaderSize))
	}
	start := elementsStart(m.buckets)
	for i := 0; i < m.elements; i++ {
		off := uint64(start + i*ElementHeaderSize)
		slots = append(slots, off, off+8)
	}
	return slots
}

// Release returns the buffer to its allocator. The Map is empty afterwards.
func (m *Map) Release() {
	if m.buf == nil {
		return
	}
	m.alloc.Free(m.buf)
	m.buf = nil
	m.buckets = 0
	m.elements = 0
}
