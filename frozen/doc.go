// Package frozen compacts a hashtable.Table into a read-only Map that lives
// in exactly one allocation.
//
// Layout, all fields little-endian:
//
//	bucket header  (16 B): data u64 | size u32 | cap u32
//	element header (16 B): key  u64 | value u64
//	strings:               key NUL [value NUL] per element
//
// Bucket headers come first, then element headers grouped bucket by bucket,
// then string bytes in the same order. Address fields hold base+offset where
// base is the start address of the allocation; a value of 0 marks an absent
// value. Addresses are translated back to offsets on every read and are never
// converted to pointers, so the Map stays valid as long as the allocation is
// alive and has not been copied.
//
// Slots lists the byte offset of every address field. The codec package uses
// it to relocate a serialized Map into a new allocation, and Adopt validates
// the result.
package frozen
