package symcache

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/symcache/internal/mem"
	"github.com/hupe1980/symcache/resource"
	"github.com/hupe1980/symcache/testutil"
)

func exampleIndex(t *testing.T, optFns ...Option) (*Index, string) {
	t.Helper()
	dir := t.TempDir()
	writeSource(t, filepath.Join(dir, KindLib.File), exampleDump)
	opts := append([]Option{WithSourceDir(dir), WithCacheDir(dir)}, optFns...)
	return New(opts...), dir
}

func TestLookup_Example(t *testing.T) {
	ix, _ := exampleIndex(t)
	ctx := context.Background()
	source := ix.Source(KindLib)

	res, err := ix.Lookup(ctx, source, "alpha")
	require.NoError(t, err)
	assert.Equal(t, StatusRebuilt, res.Status)
	assert.Equal(t, []string{`C:\libs\foo.lib`, `C:\libs\bar.lib`}, res.Paths)

	libs, err := res.Libraries()
	require.NoError(t, err)
	assert.Equal(t, []string{"foo.lib", "bar.lib"}, libs)

	res, err = ix.Lookup(ctx, source, "beta")
	require.NoError(t, err)
	assert.Equal(t, StatusFresh, res.Status)
	assert.Equal(t, []string{`C:\libs\foo.lib`}, res.Paths)

	res, err = ix.Lookup(ctx, source, "gamma")
	require.NoError(t, err)
	assert.False(t, res.Found())

	// Exact, case-sensitive keys.
	res, err = ix.Lookup(ctx, source, "Alpha")
	require.NoError(t, err)
	assert.False(t, res.Found())
}

func TestLookup_RandomDump(t *testing.T) {
	rng := testutil.NewRNG(11)
	src, want := rng.SymbolFile(40, 60)

	dir := t.TempDir()
	source := filepath.Join(dir, "symbols_obj.yaml")
	writeSource(t, source, src)
	ix := New(WithCacheDir(dir))
	ctx := context.Background()

	for sym, libs := range want {
		res, err := ix.Lookup(ctx, source, sym)
		require.NoError(t, err)
		assert.Equal(t, strings.Split(libs, "\n"), res.Paths, sym)
	}
}

func TestLookup_Allocators(t *testing.T) {
	for _, name := range []string{"heap", "aligned", "mmap"} {
		t.Run(name, func(t *testing.T) {
			alloc, err := NewAllocator(name)
			require.NoError(t, err)

			ix, _ := exampleIndex(t, WithAllocator(alloc))
			res, err := ix.Lookup(context.Background(), ix.Source(KindLib), "alpha")
			require.NoError(t, err)
			assert.Len(t, res.Paths, 2)

			if m, ok := alloc.(*mem.Mmap); ok {
				assert.Zero(t, m.Live())
			}
		})
	}
}

func TestLookup_MemoryBudget(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 64})
	ix, _ := exampleIndex(t, WithResourceController(rc))
	source := ix.Source(KindLib)

	_, err := ix.Lookup(context.Background(), source, "alpha")
	require.Error(t, err)
	assert.ErrorIs(t, err, mem.ErrAllocationFailed)
	assert.Zero(t, rc.MemoryUsage())

	_, err = os.Stat(ix.CachePath(source))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLookup_BudgetReleased(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20})
	ix, _ := exampleIndex(t, WithResourceController(rc))

	_, err := ix.Lookup(context.Background(), ix.Source(KindLib), "alpha")
	require.NoError(t, err)
	assert.Zero(t, rc.MemoryUsage())
	assert.Positive(t, rc.PeakMemoryUsage())
}

func TestLookup_CorruptCacheIsRebuilt(t *testing.T) {
	ix, _ := exampleIndex(t)
	ctx := context.Background()
	source := ix.Source(KindLib)

	_, err := ix.Ensure(ctx, source)
	require.NoError(t, err)

	cache := ix.CachePath(source)
	require.NoError(t, os.WriteFile(cache, make([]byte, 64), 0o644))
	setMtime(t, cache, time.Now())

	res, err := ix.Lookup(ctx, source, "alpha")
	require.NoError(t, err)
	assert.Equal(t, StatusRebuilt, res.Status)
	assert.Len(t, res.Paths, 2)
}

func TestLibraries(t *testing.T) {
	res := &Result{Paths: []string{"a/x.lib", `b\x.lib`, "y.lib", `c:\d/e\z.dll`, "y.lib"}}
	libs, err := res.Libraries()
	require.NoError(t, err)
	assert.Equal(t, []string{"x.lib", "y.lib", "z.dll"}, libs)

	names, err := res.Names(true)
	require.NoError(t, err)
	assert.Equal(t, res.Paths, names)

	libs, err = (&Result{}).Libraries()
	require.NoError(t, err)
	assert.Empty(t, libs)
}

func TestWriteText(t *testing.T) {
	res := &Result{Symbol: "alpha", Paths: []string{`C:\libs\foo.lib`, `C:\libs\bar.lib`, `D:\foo.lib`}}

	tests := []struct {
		name string
		res  *Result
		full bool
		want string
	}{
		{"dedup", res, false, "lib matches for 'alpha':\nfoo.lib\nbar.lib\n"},
		{"full", res, true, "lib matches for 'alpha':\nC:\\libs\\foo.lib\nC:\\libs\\bar.lib\nD:\\foo.lib\n"},
		{"none", &Result{Symbol: "gamma"}, false, "No lib matches found for 'gamma'\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteText(&buf, "lib", tc.res, tc.full))
			assert.Equal(t, tc.want, buf.String())
		})
	}
}

func TestFind(t *testing.T) {
	ix, dir := exampleIndex(t)
	writeSource(t, filepath.Join(dir, KindDLL.File), "fullpath: /usr/lib/libfoo.so\n - alpha\n")
	ctx := context.Background()

	var buf bytes.Buffer
	require.NoError(t, ix.Find(ctx, &buf, []Kind{KindLib, KindDLL}, "alpha", false))
	assert.Equal(t, "lib matches for 'alpha':\nfoo.lib\nbar.lib\ndll matches for 'alpha':\nlibfoo.so\n", buf.String())

	buf.Reset()
	require.NoError(t, ix.Find(ctx, &buf, []Kind{KindLib}, "gamma", true))
	assert.Equal(t, "No lib matches found for 'gamma'\n", buf.String())
}

func TestFind_FailedKindDoesNotAbortOthers(t *testing.T) {
	ix, _ := exampleIndex(t)

	var buf bytes.Buffer
	err := ix.Find(context.Background(), &buf, Kinds(), "beta", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceNotFound)
	assert.Contains(t, err.Error(), "dll:")
	assert.Contains(t, err.Error(), "object:")

	assert.Equal(t, "lib matches for 'beta':\nC:\\libs\\foo.lib\n", buf.String())
}

func TestFindJSON(t *testing.T) {
	ix, _ := exampleIndex(t)

	var buf bytes.Buffer
	err := ix.FindJSON(context.Background(), &buf, []Kind{KindLib, KindObject}, "alpha", false)
	require.ErrorIs(t, err, ErrSourceNotFound)

	var report jsonReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.Equal(t, "alpha", report.Symbol)
	require.Len(t, report.Results, 2)

	assert.Equal(t, "lib", report.Results[0].Kind)
	assert.Equal(t, []string{"foo.lib", "bar.lib"}, report.Results[0].Matches)
	assert.Equal(t, "rebuilt", report.Results[0].Status)
	assert.Empty(t, report.Results[0].Error)

	assert.Equal(t, "object", report.Results[1].Kind)
	assert.Empty(t, report.Results[1].Matches)
	assert.NotEmpty(t, report.Results[1].Error)
}

func TestSearch_Metrics(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	ix, _ := exampleIndex(t, WithMetricsCollector(metrics))

	results := ix.Search(context.Background(), []Kind{KindLib, KindLib, KindDLL}, "alpha")
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.Error(t, results[2].Err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(3), stats.LookupCount)
	assert.Equal(t, int64(2), stats.LookupHits)
	assert.Equal(t, int64(1), stats.LookupErrors)
	assert.Equal(t, int64(1), stats.RebuildCount)
}

func TestValidateSymbol(t *testing.T) {
	assert.NoError(t, ValidateSymbol("?foo@@YAXXZ"))
	assert.ErrorIs(t, ValidateSymbol(""), ErrInvalidSymbol)
	assert.ErrorIs(t, ValidateSymbol("caf\u00e9"), ErrInvalidSymbol)
	assert.ErrorIs(t, ValidateSymbol("a\x00b"), ErrInvalidSymbol)
}

func TestParseKind(t *testing.T) {
	for name, want := range map[string]Kind{"lib": KindLib, "DLLS": KindDLL, "obj": KindObject, "objects": KindObject} {
		k, err := ParseKind(name)
		require.NoError(t, err)
		assert.Equal(t, want, k)
	}
	_, err := ParseKind("exe")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestNewAllocator(t *testing.T) {
	a, err := NewAllocator("")
	require.NoError(t, err)
	assert.IsType(t, mem.Heap{}, a)

	_, err = NewAllocator("arena")
	assert.ErrorIs(t, err, ErrUnknownAllocator)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	ix, _ := exampleIndex(t, WithLogger(NewJSONLogger(&buf, slog.LevelDebug)))

	_, err := ix.Lookup(context.Background(), ix.Source(KindLib), "alpha")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"msg":"cache rebuilt"`)
	assert.Contains(t, out, `"symbols":2`)
	assert.Contains(t, out, `"status":"rebuilt"`)
}
