// Package hashtable implements the mutable string-to-string table that symbol
// files are parsed into before being frozen.
//
// The table is chained: each bucket owns a dynamic array of elements that
// doubles when full, and the bucket array itself doubles (a rehash) whenever
// an insert finds as many elements as buckets, so the load factor never
// exceeds 1. Buckets are selected with the djb2 hash (seed 5381, h*33+c).
//
// Memory for bucket and element arrays and for key copies is charged through
// mem.Reserve against the configured allocator, so a budgeted allocator can
// refuse growth. Refusals surface as errors wrapping mem.ErrAllocationFailed
// and never leave the table partially modified.
//
// A Table is not safe for concurrent use.
package hashtable
