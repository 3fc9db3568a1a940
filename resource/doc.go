// Package resource meters the memory and I/O a symbol index may consume.
//
// A Controller backs two things:
//
//   - the budgeted allocator in internal/mem, which refuses allocations once
//     MemoryLimitBytes would be exceeded (surfacing as mem.ErrAllocationFailed)
//   - mirror transfers, which are throttled to IOLimitBytesPerSec through
//     RateLimitedReader and RateLimitedWriter
//
// A nil *Controller is valid and imposes no limits.
package resource
