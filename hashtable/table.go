package hashtable

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/symcache/internal/mem"
)

var (
	// ErrInvalidKey is returned for keys containing a NUL byte.
	ErrInvalidKey = errors.New("hashtable: key contains NUL byte")
	// ErrInvalidValue is returned for values containing a NUL byte.
	ErrInvalidValue = errors.New("hashtable: value contains NUL byte")
)

// Element is one key/value entry. A nil value is represented by HasValue
// reporting false.
type Element struct {
	key      string
	value    string
	hasValue bool
}

// Key returns the element key.
func (e *Element) Key() string { return e.key }

// Value returns the value and whether one is set.
func (e *Element) Value() (string, bool) { return e.value, e.hasValue }

// HasValue reports whether a value is set.
func (e *Element) HasValue() bool { return e.hasValue }

// SetValue replaces the value.
func (e *Element) SetValue(v string) error {
	if strings.IndexByte(v, 0) >= 0 {
		return ErrInvalidValue
	}
	e.value, e.hasValue = v, true
	return nil
}

// ClearValue marks the value absent.
func (e *Element) ClearValue() {
	e.value, e.hasValue = "", false
}

type bucket struct {
	data []Element // len is the live count, cap the allocated slots
}

// Table is a chained hash table from string keys to optional string values.
type Table struct {
	buckets []bucket
	count   int
	alloc   mem.Allocator
	initial int
}

// New creates an empty table with DefaultBuckets buckets of
// DefaultBucketCapacity slots each.
func New(optFns ...Option) (*Table, error) {
	o := options{buckets: DefaultBuckets}
	for _, fn := range optFns {
		fn(&o)
	}

	t := &Table{alloc: o.alloc, initial: o.buckets}
	buckets, err := t.allocBuckets(o.buckets)
	if err != nil {
		return nil, err
	}
	t.buckets = buckets
	return t, nil
}

// Len returns the number of elements.
func (t *Table) Len() int { return t.count }

// BucketCount returns the number of buckets.
func (t *Table) BucketCount() int { return len(t.buckets) }

// BucketLen returns the live element count of bucket i.
func (t *Table) BucketLen(i int) int { return len(t.buckets[i].data) }

// BucketCap returns the allocated slot count of bucket i.
func (t *Table) BucketCap(i int) int { return cap(t.buckets[i].data) }

// Bucket returns the live elements of bucket i. The slice aliases table
// storage and must not be modified.
func (t *Table) Bucket(i int) []Element { return t.buckets[i].data }

func (t *Table) reserve(n int) error {
	if err := mem.Reserve(t.alloc, n); err != nil {
		return fmt.Errorf("hashtable: %w", err)
	}
	return nil
}

func (t *Table) unreserve(n int) {
	mem.Unreserve(t.alloc, n)
}

func bucketsBytes(n int) int {
	return n*BucketHeaderSize + n*DefaultBucketCapacity*ElementHeaderSize
}

func (t *Table) allocBuckets(n int) ([]bucket, error) {
	if err := t.reserve(bucketsBytes(n)); err != nil {
		return nil, err
	}
	buckets := make([]bucket, n)
	for i := range buckets {
		buckets[i].data = make([]Element, 0, DefaultBucketCapacity)
	}
	return buckets, nil
}

// releaseBuckets returns the accounting for bucket arrays, not for keys.
func (t *Table) releaseBuckets(buckets []bucket) {
	n := len(buckets) * BucketHeaderSize
	for i := range buckets {
		n += cap(buckets[i].data) * ElementHeaderSize
	}
	t.unreserve(n)
}

func (t *Table) ensureBuckets() error {
	if t.buckets != nil {
		return nil
	}
	buckets, err := t.allocBuckets(t.initial)
	if err != nil {
		return err
	}
	t.buckets = buckets
	return nil
}

func (t *Table) locate(key string) (*bucket, int) {
	if len(t.buckets) == 0 {
		return nil, -1
	}
	b := &t.buckets[Hash(key)%uint64(len(t.buckets))]
	for i := range b.data {
		if b.data[i].key == key {
			return b, i
		}
	}
	return b, -1
}

// add appends e to b, doubling the bucket array when full.
func (t *Table) add(b *bucket, e Element) error {
	if len(b.data) == cap(b.data) {
		newCap := max(2*cap(b.data), DefaultBucketCapacity)
		if err := t.reserve(newCap * ElementHeaderSize); err != nil {
			return err
		}
		grown := make([]Element, len(b.data), newCap)
		copy(grown, b.data)
		t.unreserve(cap(b.data) * ElementHeaderSize)
		b.data = grown
	}
	b.data = append(b.data, e)
	return nil
}

// Rehash doubles the bucket count and redistributes every element. On
// failure the table is left exactly as it was.
func (t *Table) Rehash() error {
	if err := t.ensureBuckets(); err != nil {
		return err
	}

	tmp := &Table{alloc: t.alloc}
	buckets, err := tmp.allocBuckets(2 * len(t.buckets))
	if err != nil {
		return err
	}
	tmp.buckets = buckets

	for i := range t.buckets {
		for _, e := range t.buckets[i].data {
			b := &tmp.buckets[Hash(e.key)%uint64(len(tmp.buckets))]
			if err := tmp.add(b, e); err != nil {
				tmp.releaseBuckets(tmp.buckets)
				return err
			}
		}
	}

	t.releaseBuckets(t.buckets)
	t.buckets = tmp.buckets
	return nil
}

func (t *Table) prepare(key string) (*bucket, int, error) {
	if strings.IndexByte(key, 0) >= 0 {
		return nil, -1, ErrInvalidKey
	}
	if err := t.ensureBuckets(); err != nil {
		return nil, -1, err
	}
	if t.count == len(t.buckets) {
		if err := t.Rehash(); err != nil {
			return nil, -1, err
		}
	}
	b, i := t.locate(key)
	return b, i, nil
}

func (t *Table) insertNew(b *bucket, e Element) (*Element, error) {
	// Clone detaches the key from caller memory, e.g. a parser's line buffer.
	e.key = strings.Clone(e.key)
	if err := t.reserve(len(e.key) + 1); err != nil {
		return nil, err
	}
	if err := t.add(b, e); err != nil {
		t.unreserve(len(e.key) + 1)
		return nil, err
	}
	t.count++
	return &b.data[len(b.data)-1], nil
}

// Insert sets key to value, overwriting the value of an existing key.
func (t *Table) Insert(key, value string) error {
	if strings.IndexByte(value, 0) >= 0 {
		return ErrInvalidValue
	}
	b, i, err := t.prepare(key)
	if err != nil {
		return err
	}
	if i >= 0 {
		b.data[i].value, b.data[i].hasValue = value, true
		return nil
	}
	_, err = t.insertNew(b, Element{key: key, value: value, hasValue: true})
	return err
}

// GetOrInsert returns the element for key, inserting it with no value when
// missing. The handle stays valid until the next mutation of the table.
func (t *Table) GetOrInsert(key string) (*Element, error) {
	b, i, err := t.prepare(key)
	if err != nil {
		return nil, err
	}
	if i >= 0 {
		return &b.data[i], nil
	}
	return t.insertNew(b, Element{key: key})
}

// Find returns the element for key. It never triggers a rehash.
func (t *Table) Find(key string) (*Element, bool) {
	b, i := t.locate(key)
	if i < 0 {
		return nil, false
	}
	return &b.data[i], true
}

// Value returns the value of key. ok is false when the key is missing or
// its value is absent.
func (t *Table) Value(key string) (value string, ok bool) {
	e, found := t.Find(key)
	if !found {
		return "", false
	}
	return e.Value()
}

// Remove deletes key and reports whether it was present.
func (t *Table) Remove(key string) bool {
	b, i := t.locate(key)
	if i < 0 {
		return false
	}
	t.unreserve(len(b.data[i].key) + 1)
	n := len(b.data)
	copy(b.data[i:], b.data[i+1:])
	b.data[n-1] = Element{}
	b.data = b.data[:n-1]
	t.count--
	return true
}

func (t *Table) releaseKeys() {
	n := 0
	for i := range t.buckets {
		for _, e := range t.buckets[i].data {
			n += len(e.key) + 1
		}
	}
	t.unreserve(n)
}

// Clear removes every element but keeps bucket arrays allocated.
func (t *Table) Clear() {
	t.releaseKeys()
	for i := range t.buckets {
		clear(t.buckets[i].data)
		t.buckets[i].data = t.buckets[i].data[:0]
	}
	t.count = 0
}

// Free releases all storage. The table may be reused afterwards and starts
// over with its initial bucket count.
func (t *Table) Free() {
	t.releaseKeys()
	t.releaseBuckets(t.buckets)
	t.buckets = nil
	t.count = 0
}

// Range calls fn for every element in bucket order, then slot order, until
// fn returns false.
func (t *Table) Range(fn func(e *Element) bool) {
	for i := range t.buckets {
		for j := range t.buckets[i].data {
			if !fn(&t.buckets[i].data[j]) {
				return
			}
		}
	}
}

// Stats summarizes table shape.
type Stats struct {
	Buckets       int
	Elements      int
	EmptyBuckets  int
	LongestChain  int
	LoadFactor    float64
	ReservedBytes int
}

// Stats returns the current table shape.
func (t *Table) Stats() Stats {
	s := Stats{Buckets: len(t.buckets), Elements: t.count}
	for i := range t.buckets {
		n := len(t.buckets[i].data)
		if n == 0 {
			s.EmptyBuckets++
		}
		s.LongestChain = max(s.LongestChain, n)
		s.ReservedBytes += BucketHeaderSize + cap(t.buckets[i].data)*ElementHeaderSize
		for _, e := range t.buckets[i].data {
			s.ReservedBytes += len(e.key) + 1
		}
	}
	if s.Buckets > 0 {
		s.LoadFactor = float64(s.Elements) / float64(s.Buckets)
	}
	return s
}
