// Package mem provides the allocation strategies used by the symbol index.
//
// Every large, single allocation (the frozen map arena and the decode
// destination) goes through an Allocator so callers can choose between plain
// heap slices, 64-byte aligned slices, anonymous mappings, or any of those
// under a memory budget. The growable hash table only meters its arrays
// through Reserve; Go values that hold pointers never live in Allocator memory.
//
// # Aligned Allocation
//
// AllocAligned over-allocates by Alignment bytes and returns the aligned
// window. The backing array is kept alive by the returned slice.
package mem
