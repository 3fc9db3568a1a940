// Package fs provides the filesystem seam used for every cache write.
//
//   - [FileSystem]: open, create-temp, remove, rename, stat, mkdir
//   - [LocalFS]: the os-backed implementation ([Default])
//   - [FaultyFS]: injects short writes, sync and close failures in tests
//   - [WriteAtomic]: temp file, fsync, rename over the target, fsync the directory
//
// Operations take no context.Context; local file operations are not
// interruptible at the syscall level. Remote transfers go through blobstore.
package fs
