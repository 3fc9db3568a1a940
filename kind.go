package symcache

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind names one family of symbol dumps.
type Kind struct {
	Name string // label used in output, e.g. "lib"
	File string // dump file name inside the source directory
}

var (
	KindLib    = Kind{Name: "lib", File: "symbols_lib.yaml"}
	KindDLL    = Kind{Name: "dll", File: "symbols_dll.yaml"}
	KindObject = Kind{Name: "object", File: "symbols_obj.yaml"}
)

// Kinds returns every kind in output order.
func Kinds() []Kind {
	return []Kind{KindLib, KindDLL, KindObject}
}

// ParseKind accepts a kind name, singular or plural.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(name) {
	case "lib", "libs":
		return KindLib, nil
	case "dll", "dlls":
		return KindDLL, nil
	case "obj", "object", "objects":
		return KindObject, nil
	default:
		return Kind{}, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
}

// Source returns the dump path of k.
func (ix *Index) Source(k Kind) string {
	return filepath.Join(ix.opts.sourceDir, k.File)
}
