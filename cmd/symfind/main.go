// Command symfind prints the libraries that define a symbol.
//
//	symfind [flags] <symbol>
//
// By default only static libraries (index/symbols_lib.yaml) are searched.
// -d and -o switch to DLLs and object files, -l adds libraries back, -a
// searches everything. Output lists library file names unless -f asks for
// full paths.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/dustin/go-humanize"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/hupe1980/symcache"
	"github.com/hupe1980/symcache/resource"
)

const envPrefix = "SYMFIND_"

type config struct {
	symbol    string
	libs      bool
	dlls      bool
	objects   bool
	all       bool
	full      bool
	verbose   bool
	format    string
	sourceDir string
	cacheDir  string
	mirror    string
	push      bool
	ioLimit   string
	memLimit  string
	allocator string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func newApp(cfg *config, stdout io.Writer) *kingpin.Application {
	app := kingpin.New("symfind", "Find the libraries that define a symbol.").UsageWriter(stdout)
	app.HelpFlag.Short('h')

	app.Flag("libs", "Search static libraries (default unless -d or -o is given).").Short('l').Envar(envPrefix + "LIBS").BoolVar(&cfg.libs)
	app.Flag("dlls", "Search DLLs.").Short('d').Envar(envPrefix + "DLLS").BoolVar(&cfg.dlls)
	app.Flag("objects", "Search object files.").Short('o').Envar(envPrefix + "OBJECTS").BoolVar(&cfg.objects)
	app.Flag("all", "Search every kind.").Short('a').Envar(envPrefix + "ALL").BoolVar(&cfg.all)
	app.Flag("full", "Print full library paths.").Short('f').Envar(envPrefix + "FULL").BoolVar(&cfg.full)
	app.Flag("verbose", "Enable verbose logging.").Short('v').Envar(envPrefix + "VERBOSE").BoolVar(&cfg.verbose)
	app.Flag("format", "Output format.").Default("text").Envar(envPrefix+"FORMAT").EnumVar(&cfg.format, "text", "json")
	app.Flag("source-dir", "Directory of the symbol dumps.").Default(symcache.DefaultDir).Envar(envPrefix + "SOURCE_DIR").StringVar(&cfg.sourceDir)
	app.Flag("cache-dir", "Directory of the cache files.").Default(symcache.DefaultDir).Envar(envPrefix + "CACHE_DIR").StringVar(&cfg.cacheDir)
	app.Flag("mirror", "Shared cache mirror: file:///dir, s3://bucket/prefix, minio://host/bucket/prefix or minios://...").Envar(envPrefix + "MIRROR").StringVar(&cfg.mirror)
	app.Flag("mirror-push", "Upload rebuilt caches to the mirror.").Envar(envPrefix + "MIRROR_PUSH").BoolVar(&cfg.push)
	app.Flag("io-limit", "Mirror transfer limit per second, e.g. 20MiB (0 = unlimited).").Default("0").Envar(envPrefix + "IO_LIMIT").StringVar(&cfg.ioLimit)
	app.Flag("memory-limit", "Memory budget for cache tables, e.g. 512MiB (0 = unlimited).").Default("0").Envar(envPrefix + "MEMORY_LIMIT").StringVar(&cfg.memLimit)
	app.Flag("allocator", "Allocator for cache tables.").Default("heap").Envar(envPrefix+"ALLOCATOR").EnumVar(&cfg.allocator, "heap", "aligned", "mmap")

	app.Arg("symbol", "Exact, case-sensitive symbol name.").Required().StringVar(&cfg.symbol)
	return app
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var cfg config
	app := newApp(&cfg, stdout)
	if _, err := app.Parse(args); err != nil {
		fmt.Fprintf(stderr, "symfind: %v\n", err)
		return 1
	}

	if err := symcache.ValidateSymbol(cfg.symbol); err != nil {
		fmt.Fprintf(stderr, "Invalid argument '%s'\n", cfg.symbol)
		return 1
	}

	level := slog.LevelWarn
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := symcache.NewTextLogger(stderr, level)

	opts, err := cfg.options(ctx, logger)
	if err != nil {
		fmt.Fprintf(stderr, "symfind: %v\n", err)
		return 1
	}
	ix := symcache.New(opts...)

	find := ix.Find
	if cfg.format == "json" {
		find = ix.FindJSON
	}
	// Failed kinds are already logged; they do not change the exit status.
	if err := find(ctx, stdout, cfg.kinds(), cfg.symbol, cfg.full); err != nil {
		logger.Debug("search finished with errors", "error", err)
	}
	return 0
}

// kinds applies the selection rules: libraries unless DLLs or objects were
// asked for, libraries again with -l, everything with -a.
func (c *config) kinds() []symcache.Kind {
	if c.all {
		return symcache.Kinds()
	}
	lib := (!c.dlls && !c.objects) || c.libs

	var kinds []symcache.Kind
	if lib {
		kinds = append(kinds, symcache.KindLib)
	}
	if c.dlls {
		kinds = append(kinds, symcache.KindDLL)
	}
	if c.objects {
		kinds = append(kinds, symcache.KindObject)
	}
	return kinds
}

func (c *config) options(ctx context.Context, logger *symcache.Logger) ([]symcache.Option, error) {
	opts := []symcache.Option{
		symcache.WithSourceDir(c.sourceDir),
		symcache.WithCacheDir(c.cacheDir),
		symcache.WithLogger(logger),
	}

	alloc, err := symcache.NewAllocator(c.allocator)
	if err != nil {
		return nil, err
	}
	opts = append(opts, symcache.WithAllocator(alloc))

	ioLimit, err := humanize.ParseBytes(c.ioLimit)
	if err != nil {
		return nil, fmt.Errorf("--io-limit: %w", err)
	}
	memLimit, err := humanize.ParseBytes(c.memLimit)
	if err != nil {
		return nil, fmt.Errorf("--memory-limit: %w", err)
	}
	if ioLimit > 0 || memLimit > 0 {
		opts = append(opts, symcache.WithResourceController(resource.NewController(resource.Config{
			MemoryLimitBytes:   int64(memLimit), //nolint:gosec // flag value
			IOLimitBytesPerSec: int64(ioLimit),  //nolint:gosec // flag value
		})))
	}

	if c.mirror != "" {
		store, err := openMirror(ctx, c.mirror)
		if err != nil {
			return nil, fmt.Errorf("--mirror: %w", err)
		}
		opts = append(opts, symcache.WithMirror(store), symcache.WithPush(c.push))
	}
	return opts, nil
}
