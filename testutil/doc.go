// Package testutil provides seeded generators for tests and benchmarks.
//
// This package is intended for use in tests and benchmarks only.
//
// # Symbols
//
//	rng := testutil.NewRNG(seed)
//	syms := rng.Symbols(1000)        // unique mangled-looking names
//	lib := rng.LibraryPath()         // C:\libs\xyz.lib or /usr/lib/xyz.a
//
// # Symbol Files
//
//	src, want := rng.SymbolFile(20, 50)
//
// src is symbol-file text; want maps every symbol to its newline-joined
// libraries in the order they appear in src. Symbols are shared between
// libraries with a Zipfian skew so popular symbols collect many values.
package testutil
