package symcache

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
)

// KindResult is the lookup outcome for one kind. Exactly one of Result and
// Err is set.
type KindResult struct {
	Kind   Kind
	Result *Result
	Err    error
}

// Search looks symbol up in the dump of every kind. The kinds are processed
// concurrently; results keep the order of kinds. A failing kind does not
// affect the others.
func (ix *Index) Search(ctx context.Context, kinds []Kind, symbol string) []KindResult {
	out := make([]KindResult, len(kinds))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, k := range kinds {
		g.Go(func() error {
			res, err := ix.Lookup(ctx, ix.Source(k), symbol)
			matches := 0
			if res != nil {
				matches = len(res.Paths)
			}
			ix.opts.logger.LogLookup(ctx, k.Name, symbol, matches, err)
			out[i] = KindResult{Kind: k, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// Find prints the text report of every kind to w. Failed kinds are logged,
// skipped and returned joined after the report was written.
func (ix *Index) Find(ctx context.Context, w io.Writer, kinds []Kind, symbol string, full bool) error {
	bw := bufio.NewWriter(w)

	var errs []error
	for _, kr := range ix.Search(ctx, kinds, symbol) {
		if kr.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", kr.Kind.Name, kr.Err))
			continue
		}
		if err := WriteText(bw, kr.Kind.Name, kr.Result, full); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

// FindJSON is Find with a JSON report (see WriteJSON).
func (ix *Index) FindJSON(ctx context.Context, w io.Writer, kinds []Kind, symbol string, full bool) error {
	results := ix.Search(ctx, kinds, symbol)
	if err := WriteJSON(w, symbol, results, full); err != nil {
		return err
	}

	var errs []error
	for _, kr := range results {
		if kr.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", kr.Kind.Name, kr.Err))
		}
	}
	return errors.Join(errs...)
}

// WriteText prints one kind's report:
//
//	lib matches for 'alpha':
//	foo.lib
//	bar.lib
//
// or "No lib matches found for 'alpha'" when nothing matched.
func WriteText(w io.Writer, kind string, res *Result, full bool) error {
	if !res.Found() {
		_, err := fmt.Fprintf(w, "No %s matches found for '%s'\n", kind, res.Symbol)
		return err
	}

	names, err := res.Names(full)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s matches for '%s':\n", kind, res.Symbol); err != nil {
		return err
	}
	for _, name := range names {
		if _, err := io.WriteString(w, name+"\n"); err != nil {
			return err
		}
	}
	return nil
}

type jsonReport struct {
	Symbol  string       `json:"symbol"`
	Results []jsonResult `json:"results"`
}

type jsonResult struct {
	Kind    string   `json:"kind"`
	Source  string   `json:"source,omitempty"`
	Status  string   `json:"status,omitempty"`
	Matches []string `json:"matches"`
	Error   string   `json:"error,omitempty"`
}

// WriteJSON prints the results of all kinds as one indented JSON document.
func WriteJSON(w io.Writer, symbol string, results []KindResult, full bool) error {
	report := jsonReport{Symbol: symbol, Results: make([]jsonResult, 0, len(results))}
	for _, kr := range results {
		jr := jsonResult{Kind: kr.Kind.Name, Matches: []string{}}
		if kr.Err != nil {
			jr.Error = kr.Err.Error()
			report.Results = append(report.Results, jr)
			continue
		}
		names, err := kr.Result.Names(full)
		if err != nil {
			return err
		}
		if names != nil {
			jr.Matches = names
		}
		jr.Source = kr.Result.Source
		jr.Status = kr.Result.Status.String()
		report.Results = append(report.Results, jr)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
