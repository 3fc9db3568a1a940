// Package codec reads and writes the on-disk form of a frozen.Map.
//
// Stream layout, all fields little-endian:
//
//	[8B]   anchor: base address of the map when it was encoded
//	[4B]   bucket count
//	[4B]   element count
//	[8B]   slot count P (buckets + 2*elements)
//	[P*8B] slot offsets, relative to the payload start
//	[...]  payload: the map buffer verbatim
//
// Every slot names an address field inside the payload. Decode copies the
// payload into a fresh allocation and rewrites each non-zero field as
// newBase + (stale - anchor), so the map works at whatever address it lands.
// Streams whose sizes, offsets or addresses are inconsistent fail with
// ErrCorrupt before anything is read out of bounds.
package codec
