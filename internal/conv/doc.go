// Package conv provides checked integer conversions and arithmetic.
//
// Cache headers carry fixed-width counts that must be turned into Go ints
// (and back) without silently wrapping. Every failure wraps ErrOverflow.
package conv
