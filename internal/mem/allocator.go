package mem

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/symcache/internal/mmap"
	"github.com/hupe1980/symcache/resource"
)

// ErrAllocationFailed is returned when an allocator refuses a request.
var ErrAllocationFailed = errors.New("mem: allocation failed")

// Allocator hands out zeroed byte buffers and takes them back.
type Allocator interface {
	Alloc(size int) ([]byte, error)
	Free(buf []byte)
}

// Reserver is implemented by allocators that can meter memory held outside
// their own buffers.
type Reserver interface {
	Reserve(n int) error
	Unreserve(n int)
}

// OrHeap returns a, or Heap when a is nil.
func OrHeap(a Allocator) Allocator {
	if a == nil {
		return Heap{}
	}
	return a
}

// Reserve charges n bytes against a if it implements Reserver.
func Reserve(a Allocator, n int) error {
	if r, ok := a.(Reserver); ok && n > 0 {
		return r.Reserve(n)
	}
	return nil
}

// Unreserve returns n bytes previously charged with Reserve.
func Unreserve(a Allocator, n int) {
	if r, ok := a.(Reserver); ok && n > 0 {
		r.Unreserve(n)
	}
}

func invalidSize(size int) error {
	return fmt.Errorf("%w: invalid size %d", ErrAllocationFailed, size)
}

// Heap allocates with make.
type Heap struct{}

func (Heap) Alloc(size int) ([]byte, error) {
	if size <= 0 {
		return nil, invalidSize(size)
	}
	return make([]byte, size), nil
}

func (Heap) Free([]byte) {}

// Aligned allocates 64-byte aligned heap buffers.
type Aligned struct{}

func (Aligned) Alloc(size int) ([]byte, error) {
	if size <= 0 {
		return nil, invalidSize(size)
	}
	return AllocAligned(size), nil
}

func (Aligned) Free([]byte) {}

// Mmap allocates anonymous private mappings outside the Go heap.
// Buffers must be returned with Free to be unmapped.
type Mmap struct {
	mu   sync.Mutex
	live map[uint64]*mmap.Mapping
}

// NewMmap creates an anonymous-mapping allocator.
func NewMmap() *Mmap {
	return &Mmap{live: make(map[uint64]*mmap.Mapping)}
}

func (a *Mmap) Alloc(size int) ([]byte, error) {
	m, err := mmap.MapAnon(size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAllocationFailed, err)
	}
	buf := m.Bytes()

	a.mu.Lock()
	a.live[Addr(buf)] = m
	a.mu.Unlock()

	return buf, nil
}

func (a *Mmap) Free(buf []byte) {
	a.mu.Lock()
	m, ok := a.live[Addr(buf)]
	delete(a.live, Addr(buf))
	a.mu.Unlock()

	if ok {
		_ = m.Close()
	}
}

// Live returns the number of mappings not yet freed.
func (a *Mmap) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

// Budgeted charges every allocation and reservation against a
// resource.Controller and refuses requests over its memory limit.
type Budgeted struct {
	base Allocator
	rc   *resource.Controller
}

// NewBudgeted wraps base (Heap when nil) with the memory budget of rc.
func NewBudgeted(base Allocator, rc *resource.Controller) *Budgeted {
	return &Budgeted{base: OrHeap(base), rc: rc}
}

func (b *Budgeted) Alloc(size int) ([]byte, error) {
	if size <= 0 {
		return nil, invalidSize(size)
	}
	if err := b.Reserve(size); err != nil {
		return nil, err
	}
	buf, err := b.base.Alloc(size)
	if err != nil {
		b.rc.ReleaseMemory(int64(size))
		return nil, err
	}
	return buf, nil
}

func (b *Budgeted) Free(buf []byte) {
	n := len(buf)
	b.base.Free(buf)
	b.rc.ReleaseMemory(int64(n))
}

func (b *Budgeted) Reserve(n int) error {
	if !b.rc.TryAcquireMemory(int64(n)) {
		return fmt.Errorf("%w: %d bytes over budget (in use %d of %d)",
			ErrAllocationFailed, n, b.rc.MemoryUsage(), b.rc.Config().MemoryLimitBytes)
	}
	return nil
}

func (b *Budgeted) Unreserve(n int) {
	b.rc.ReleaseMemory(int64(n))
}

// Faulty fails every Alloc or Reserve after the first n succeed.
// It is meant for tests that exercise allocation failure paths.
type Faulty struct {
	base  Allocator
	mu    sync.Mutex
	left  int
	calls int
}

// NewFaulty wraps base (Heap when nil) and allows n successful requests.
func NewFaulty(base Allocator, n int) *Faulty {
	return &Faulty{base: OrHeap(base), left: n}
}

func (f *Faulty) take() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.left <= 0 {
		return fmt.Errorf("%w: injected failure on request %d", ErrAllocationFailed, f.calls)
	}
	f.left--
	return nil
}

// SetLimit resets the number of requests allowed to succeed.
func (f *Faulty) SetLimit(n int) {
	f.mu.Lock()
	f.left = n
	f.mu.Unlock()
}

// Calls returns the number of Alloc and Reserve requests seen.
func (f *Faulty) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *Faulty) Alloc(size int) ([]byte, error) {
	if err := f.take(); err != nil {
		return nil, err
	}
	return f.base.Alloc(size)
}

func (f *Faulty) Free(buf []byte) { f.base.Free(buf) }

func (f *Faulty) Reserve(n int) error {
	if err := f.take(); err != nil {
		return err
	}
	return Reserve(f.base, n)
}

func (f *Faulty) Unreserve(n int) { Unreserve(f.base, n) }
