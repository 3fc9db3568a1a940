package symfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hupe1980/symcache/hashtable"
)

// MaxLineSize is the longest accepted line in bytes.
const MaxLineSize = 1 << 20

const libraryPrefix = "fullpath:"

// ErrNoLibrary is returned for a symbol line outside any library section.
var ErrNoLibrary = errors.New("symfile: symbol without preceding fullpath")

// ParseError reports a line that could not be added to the table.
type ParseError struct {
	Line int    // 1-based
	Text string // the offending line
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("symfile: line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Stats describes a parsed file.
type Stats struct {
	Lines     int // non-blank lines
	Libraries int // fullpath lines
	Symbols   int // symbol lines
}

// Parse reads a dump file from r and adds its symbols to t. On error t may
// hold a partial result and should be discarded.
func Parse(r io.Reader, t *hashtable.Table) (Stats, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	sc.Split(scanLines)

	p := parser{t: t}
	for sc.Scan() {
		p.line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		if err := p.parseLine(raw); err != nil {
			return p.stats, err
		}
	}
	if err := sc.Err(); err != nil {
		return p.stats, fmt.Errorf("symfile: line %d: %w", p.line+1, err)
	}
	return p.stats, nil
}

// ParseBytes is Parse over an in-memory file.
func ParseBytes(data []byte, t *hashtable.Table) (Stats, error) {
	return Parse(bytes.NewReader(data), t)
}

type parser struct {
	t       *hashtable.Table
	library string
	hasLib  bool
	line    int
	stats   Stats
}

func isBlank(c byte) bool { return c == ' ' || c == '\t' }

func (p *parser) parseLine(raw []byte) error {
	p.stats.Lines++
	text := strings.TrimLeft(string(raw), " \t")

	if lib, ok := strings.CutPrefix(text, libraryPrefix); ok {
		p.library = strings.Trim(lib, " \t")
		p.hasLib = true
		p.stats.Libraries++
		return nil
	}

	if !isBlank(raw[0]) {
		p.library, p.hasLib = "", false
		return nil
	}

	sym, ok := strings.CutPrefix(text, "-")
	if !ok {
		return nil
	}
	if !p.hasLib {
		return &ParseError{Line: p.line, Text: string(raw), Err: ErrNoLibrary}
	}
	p.stats.Symbols++
	return p.add(strings.Trim(sym, " \t"), string(raw))
}

func (p *parser) add(sym, raw string) error {
	e, err := p.t.GetOrInsert(sym)
	if err != nil {
		return p.wrap(raw, err)
	}
	value := p.library
	if prev, ok := e.Value(); ok {
		value = prev + "\n" + p.library
	}
	if err := e.SetValue(value); err != nil {
		return p.wrap(raw, err)
	}
	return nil
}

func (p *parser) wrap(raw string, err error) error {
	if errors.Is(err, hashtable.ErrInvalidKey) || errors.Is(err, hashtable.ErrInvalidValue) {
		return &ParseError{Line: p.line, Text: raw, Err: err}
	}
	return fmt.Errorf("symfile: line %d: %w", p.line, err)
}

// scanLines splits on "\n", "\r" and "\r\n".
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		// A trailing '\r' may be the first half of "\r\n".
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
