package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	thunkruntime "github.com/wippyai/thunk-runtime"
	"github.com/wippyai/thunk-runtime/config"
	"github.com/wippyai/thunk-runtime/engine"
	"github.com/wippyai/thunk-runtime/inspect"
	"github.com/wippyai/thunk-runtime/runtime"
	"github.com/wippyai/thunk-runtime/thunk"
)

type options struct {
	wasmFile     string
	funcName     string
	args         string
	mode         string
	configFile   string
	snapshotFile string
	list         bool
	tree         bool
	verbose      bool
	interactive  bool
}

func main() {
	var opts options
	flag.StringVar(&opts.wasmFile, "wasm", "", "Path to core wasm module (default: built-in functions)")
	flag.StringVar(&opts.funcName, "func", "", "Function to apply")
	flag.StringVar(&opts.args, "args", "", "Arguments, applied one at a time (comma-separated)")
	flag.StringVar(&opts.mode, "mode", "", "Memory mode: managed, manual or arena")
	flag.StringVar(&opts.configFile, "config", "", "Config file (.toml or .json)")
	flag.StringVar(&opts.snapshotFile, "snapshot", "", "Write a CBOR snapshot of the final thunk to this file")
	flag.BoolVar(&opts.list, "list", false, "List functions and exit")
	flag.BoolVar(&opts.tree, "tree", false, "Print the captured-argument tree of the final thunk")
	flag.BoolVar(&opts.verbose, "v", false, "Debug logging")
	flag.BoolVar(&opts.interactive, "i", false, "Interactive mode with TUI")
	flag.Parse()

	if err := run(context.Background(), opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(opts options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configFile != "" {
		loaded, err := config.Load(opts.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if opts.mode != "" {
		mode, err := thunkruntime.ParseMode(opts.mode)
		if err != nil {
			return nil, err
		}
		cfg.Mode = mode
	}
	if opts.verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}

func openLibrary(ctx context.Context, opts options, cfg *config.Config) (library, error) {
	if opts.wasmFile == "" {
		return newBuiltinLibrary()
	}
	data, err := os.ReadFile(opts.wasmFile)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	mod, err := engine.Load(ctx, data, cfg.EngineConfig())
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", opts.wasmFile, err)
	}
	return wasmLibrary{mod: mod}, nil
}

func run(ctx context.Context, opts options, out io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, err := cfg.Logger()
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()
	runtime.SetLogger(logger)
	engine.SetLogger(logger)

	lib, err := openLibrary(ctx, opts, cfg)
	if err != nil {
		return err
	}
	defer lib.Close(ctx)

	if opts.list || (opts.funcName == "" && !opts.interactive) {
		fmt.Fprintln(out, "Functions:")
		for _, f := range lib.Functions() {
			marker := ""
			if !f.curryable {
				marker = "  (not curryable)"
			}
			fmt.Fprintf(out, "  %s%s\n", f, marker)
		}
		if !opts.list {
			fmt.Fprintln(out, "\nUse -func to select a function.")
		}
		return nil
	}

	rt, err := runtime.New(cfg.Runtime())
	if err != nil {
		return fmt.Errorf("create runtime: %w", err)
	}
	defer rt.Close()

	if opts.interactive {
		return runInteractive(rt, lib, opts.wasmFile)
	}

	fn, ok := lookup(lib, opts.funcName)
	if !ok {
		return fmt.Errorf("function %q not found", opts.funcName)
	}
	s, err := newSession(rt, lib, fn)
	if err != nil {
		return fmt.Errorf("root %s: %w", fn.name, err)
	}
	defer s.close()

	if err := rt.Dump(out, s.current()); err != nil {
		return err
	}
	for _, arg := range splitArgs(opts.args) {
		ref, err := s.apply(arg)
		if err != nil {
			return fmt.Errorf("apply %s: %w", arg, err)
		}
		if err := rt.Dump(out, ref); err != nil {
			return err
		}
	}

	v, err := s.value()
	if err != nil {
		return err
	}
	if opts.tree {
		fmt.Fprintln(out, inspect.Tree(v, outputStyled(out)))
	}
	if opts.snapshotFile != "" {
		data, err := inspect.Encode(v)
		if err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		if err := os.WriteFile(opts.snapshotFile, data, 0o644); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
	}

	if !s.saturated() {
		fmt.Fprintf(out, "Partial application: %d of %d arguments\n", s.rank(), fn.arity())
		return nil
	}

	res, err := s.invoke(ctx)
	if err != nil {
		return fmt.Errorf("invoke %s: %w", fn.name, err)
	}
	fmt.Fprint(out, "Result: ")
	if err := thunk.Dump(out, res); err != nil {
		return err
	}

	logger.Debug("done",
		zap.Stringer("mode", rt.Mode()),
		zap.Int("live", rt.Live()))
	if logger.Core().Enabled(zap.DebugLevel) {
		logLive(logger, rt)
	}
	return nil
}

// logLive reports every value still held by rt with its reference count.
func logLive(logger *zap.Logger, rt *runtime.Runtime) {
	var refs []runtime.Ref
	var values []thunk.Value
	rt.Values(func(ref runtime.Ref, v thunk.Value) bool {
		refs = append(refs, ref)
		values = append(values, v)
		return true
	})
	for i, ref := range refs {
		n, err := rt.RefCount(ref)
		if err != nil {
			continue
		}
		logger.Debug("live value",
			zap.Stringer("ref", ref),
			zap.String("value", thunk.Describe(values[i])),
			zap.Int("refs", n))
	}
}

func outputStyled(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && inspect.Styled(f)
}
