package symcache

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceNotFound is returned when a symbol dump does not exist.
	ErrSourceNotFound = errors.New("symbol source not found")

	// ErrInvalidSymbol is returned for empty or non-ASCII symbol arguments.
	ErrInvalidSymbol = errors.New("invalid symbol")

	// ErrChecksumMismatch is returned when a mirrored cache fails CRC32C
	// verification.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrUnknownKind is returned by ParseKind.
	ErrUnknownKind = errors.New("unknown source kind")

	// ErrUnknownAllocator is returned by NewAllocator.
	ErrUnknownAllocator = errors.New("unknown allocator")
)

// IOError reports a failed file operation on a source or cache file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ValidateSymbol rejects empty symbols and symbols with non-ASCII bytes.
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSymbol)
	}
	for i := 0; i < len(symbol); i++ {
		if symbol[i] > 127 || symbol[i] == 0 {
			return fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
		}
	}
	return nil
}
