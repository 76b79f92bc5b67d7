// Package wasm implements backend.Backend on top of the wazero
// WebAssembly runtime. Source units are wasm binaries; relocation
// instantiates them into one shared runtime so exported symbols
// accumulate, with later definitions shadowing earlier ones.
package wasm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/caffeineduck/jitcc/backend"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
)

// wasmMagic is the 4-byte preamble of every WebAssembly binary.
var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}

type unit struct {
	name     string
	bin      []byte
	compiled wazero.CompiledModule
	mod      api.Module
}

// Backend drives a wazero runtime. Single-owner, not safe for
// concurrent use.
type Backend struct {
	ctx     context.Context
	runtime wazero.Runtime

	defines  map[string]string
	incPaths []string
	libPaths []string
	argv     []string
	output   backend.OutputType
	errFn    backend.ErrorFunc

	units   []*unit
	symbols map[string]*unit

	stdin          io.Reader
	stdout, stderr io.Writer

	nextName int
	closed   bool
}

// Option configures a Backend at creation time.
type Option func(*Backend)

// WithStdout redirects the executed image's standard output.
func WithStdout(w io.Writer) Option {
	return func(b *Backend) { b.stdout = w }
}

// WithStderr redirects the executed image's standard error.
func WithStderr(w io.Writer) Option {
	return func(b *Backend) { b.stderr = w }
}

// WithStdin redirects the executed image's standard input.
func WithStdin(r io.Reader) Option {
	return func(b *Backend) { b.stdin = r }
}

// New creates a Backend with a fresh runtime and WASI host module.
func New(opts ...Option) *Backend {
	ctx := context.Background()
	rt := wazero.NewRuntimeWithConfig(ctx,
		wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)

	b := &Backend{
		ctx:     ctx,
		runtime: rt,
		defines: make(map[string]string),
		symbols: make(map[string]*unit),
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) diag(format string, args ...any) {
	if b.errFn != nil {
		b.errFn(fmt.Sprintf(format, args...))
	}
}

func (b *Backend) DefineSymbol(name, value string) {
	b.defines[name] = value
}

func (b *Backend) AddIncludePath(dir string) {
	b.incPaths = append(b.incPaths, dir)
}

func (b *Backend) AddLibraryPath(dir string) {
	b.libPaths = append(b.libPaths, dir)
}

// AddLibrary searches the registered library paths for <name>.wasm or
// lib<name>.wasm and compiles it as a unit.
func (b *Backend) AddLibrary(name string) error {
	for _, dir := range b.libPaths {
		for _, base := range []string{name + ".wasm", "lib" + name + ".wasm"} {
			path := filepath.Join(dir, base)
			if _, err := os.Stat(path); err == nil {
				return b.CompileFile(path)
			}
		}
	}
	b.diag("library not found: %s", name)
	return fmt.Errorf("library not found: %s", name)
}

// SetOptions accepts a compiler flag string. The wasm backend has no
// tunable codegen; flags are tolerated and ignored, matching the
// tolerance the driver promises for foreign flag sets.
func (b *Backend) SetOptions(flags string) {}

func (b *Backend) SetArgs(argv []string) {
	b.argv = argv
}

func (b *Backend) SetOutputType(t backend.OutputType) {
	b.output = t
}

func (b *Backend) SetErrorFunc(fn backend.ErrorFunc) {
	b.errFn = fn
}

// CompileFile compiles one unit from a file. Only WebAssembly binaries
// are accepted; the check is by content, not extension.
func (b *Backend) CompileFile(path string) error {
	bin, err := os.ReadFile(path)
	if err != nil {
		b.diag("cannot read %s: %v", path, err)
		return err
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return b.compile(base, bin)
}

// CompileString compiles one unit from an in-memory buffer.
func (b *Backend) CompileString(code string) error {
	return b.compile("", []byte(code))
}

func (b *Backend) compile(name string, bin []byte) error {
	if !bytes.HasPrefix(bin, wasmMagic) {
		b.diag("not a WebAssembly binary")
		return errors.New("not a WebAssembly binary")
	}
	compiled, err := b.runtime.CompileModule(b.ctx, bin)
	if err != nil {
		b.diag("compile: %v", err)
		return err
	}
	b.nextName++
	if name == "" {
		name = fmt.Sprintf("u%d", b.nextName)
	} else if b.unitNamed(name) != nil {
		name = fmt.Sprintf("%s.u%d", name, b.nextName)
	}
	b.units = append(b.units, &unit{name: name, bin: bin, compiled: compiled})
	return nil
}

// OutputFile writes the compiled result to path. Object output requires
// exactly one unit; executable output writes the first unit exporting
// _start or main.
func (b *Backend) OutputFile(path string) error {
	if len(b.units) == 0 {
		b.diag("no compiled units")
		return errors.New("no compiled units")
	}
	var u *unit
	switch b.output {
	case backend.OutputObject:
		if len(b.units) != 1 {
			b.diag("object output supports a single unit, have %d", len(b.units))
			return errors.New("object output supports a single unit")
		}
		u = b.units[0]
	default:
		for _, cand := range b.units {
			exports := cand.compiled.ExportedFunctions()
			if _, ok := exports["_start"]; ok {
				u = cand
				break
			}
			if _, ok := exports["main"]; ok {
				u = cand
				break
			}
		}
		if u == nil {
			b.diag("no unit defines an entry point")
			return errors.New("no unit defines an entry point")
		}
	}
	mode := os.FileMode(0o644)
	if b.output == backend.OutputExe {
		mode = 0o755
	}
	if err := os.WriteFile(path, u.bin, mode); err != nil {
		b.diag("write %s: %v", path, err)
		return err
	}
	return nil
}

func (b *Backend) moduleConfig(name string) wazero.ModuleConfig {
	cfg := wazero.NewModuleConfig().
		WithName(name).
		WithStdin(b.stdin).
		WithStdout(b.stdout).
		WithStderr(b.stderr).
		WithStartFunctions() // entry invocation is explicit
	if len(b.argv) > 0 {
		cfg = cfg.WithArgs(b.argv...)
	}
	for k, v := range b.defines {
		cfg = cfg.WithEnv(k, v)
	}
	if len(b.incPaths) > 0 {
		fsCfg := wazero.NewFSConfig()
		for _, dir := range b.incPaths {
			fsCfg = fsCfg.WithReadOnlyDirMount(dir, dir)
		}
		cfg = cfg.WithFSConfig(fsCfg)
	}
	return cfg
}

// Relocate instantiates every not-yet-instantiated unit, in compile
// order, into the shared runtime. Imports resolve against WASI and
// previously instantiated units. Exported functions are merged into the
// symbol table; a later unit exporting an already-known name shadows
// the earlier definition.
func (b *Backend) Relocate() error {
	for i := 0; i < len(b.units); i++ {
		u := b.units[i]
		if u.mod != nil {
			continue
		}
		mod, err := b.runtime.InstantiateModule(b.ctx, u.compiled, b.moduleConfig(u.name))
		if err != nil {
			// Discard the unit: retrying it on the next call could
			// never succeed and would block every later unit.
			b.units = append(b.units[:i], b.units[i+1:]...)
			u.compiled.Close(b.ctx)
			b.diag("relocate %s: %v", u.name, err)
			return err
		}
		u.mod = mod
		for name := range u.compiled.ExportedFunctions() {
			b.symbols[name] = u
		}
	}
	return nil
}

// Resolve returns an entry invoking the named export, or nil if no
// relocated unit defines it. A request for "main" also accepts the WASI
// "_start" convention.
func (b *Backend) Resolve(name string) backend.Entry {
	u, fname := b.lookup(name)
	if u == nil && name == "main" {
		u, fname = b.lookup("_start")
	}
	if u == nil {
		return nil
	}
	fn := u.mod.ExportedFunction(fname)
	if fn == nil {
		return nil
	}
	return func(ctx context.Context, argv []string) (int, error) {
		// The argument vector was bound at instantiation (WASI model);
		// argv here is the same vector, carried for the trampoline.
		res, err := fn.Call(ctx)
		if err != nil {
			var exitErr *sys.ExitError
			if errors.As(err, &exitErr) {
				return int(exitErr.ExitCode()), nil
			}
			return 1, err
		}
		if len(res) > 0 {
			return int(int32(res[0])), nil
		}
		return 0, nil
	}
}

// LastUnitExports reports whether the most recently compiled unit
// exports name. A request for "main" also accepts the WASI "_start"
// convention, mirroring Resolve.
func (b *Backend) LastUnitExports(name string) bool {
	if len(b.units) == 0 {
		return false
	}
	exports := b.units[len(b.units)-1].compiled.ExportedFunctions()
	if _, ok := exports[name]; ok {
		return true
	}
	if name == "main" {
		_, ok := exports["_start"]
		return ok
	}
	return false
}

func (b *Backend) unitNamed(name string) *unit {
	for _, u := range b.units {
		if u.name == name {
			return u
		}
	}
	return nil
}

func (b *Backend) lookup(name string) (*unit, string) {
	if u, ok := b.symbols[name]; ok && u.mod != nil {
		return u, name
	}
	return nil, ""
}

// Close shuts the runtime down, closing every instantiated unit.
func (b *Backend) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	return b.runtime.Close(b.ctx)
}
