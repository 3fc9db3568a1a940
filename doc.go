// Package symcache answers "which library defines this symbol?" from large
// symbol dumps, fast.
//
// A dump (symbols_lib.yaml, symbols_dll.yaml, symbols_obj.yaml) lists, per
// library, its full path and the symbols it exports:
//
//	fullpath: C:\libs\foo.lib
//	 - alpha
//	 - beta
//
// The first lookup parses the dump into a hash table, freezes it into one
// contiguous block and writes that block to a cache file next to the dump.
// Later lookups map the cache file, relocate it into memory and probe it
// directly. The cache is rebuilt whenever the dump is newer.
//
// # Quick Start
//
//	ix := symcache.New(symcache.WithSourceDir("index"))
//	res, err := ix.Lookup(ctx, "index/symbols_lib.yaml", "alpha")
//	if err != nil {
//	    return err
//	}
//	libs, _ := res.Libraries() // ["foo.lib", "bar.lib"]
//
// Several kinds at once, printed the way the symfind command does:
//
//	_ = ix.Find(ctx, os.Stdout, symcache.Kinds(), "alpha", false)
//
// # Cache Files
//
// Caches are written to a temp file, fsynced and renamed into place while an
// advisory lock on "<cache>.lock" is held, so concurrent processes never see
// a torn file and never rebuild the same cache twice. A failed rebuild keeps
// the previous cache.
//
// # Mirrors
//
// WithMirror attaches a blobstore.Store. A stale local cache is then first
// fetched from the mirror when the mirror holds a copy newer than the dump;
// with WithPush, locally rebuilt caches are uploaded for other machines.
package symcache
