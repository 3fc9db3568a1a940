// Package flock provides exclusive advisory locks on a lock file.
//
// Locks are taken with flock(2) on Unix and LockFileEx on Windows. They
// coordinate separate processes rebuilding the same cache; within one
// process the caller is expected to serialize on its own.
package flock
