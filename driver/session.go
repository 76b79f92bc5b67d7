package driver

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/caffeineduck/jitcc/backend"
	"github.com/caffeineduck/jitcc/runner"
	"github.com/caffeineduck/jitcc/sandbox"
	"github.com/xyproto/env/v2"
)

// OutputMode selects the session's terminal action.
type OutputMode int

const (
	// MemoryExec relocates in memory and runs the entry point.
	MemoryExec OutputMode = iota
	// ObjectFile emits a relocatable object and never executes.
	ObjectFile
	// ExecutableFile emits a linked executable and never executes.
	ExecutableFile
)

// Session owns one backend handle and one sandbox directory for its
// whole lifetime. It is strictly sequential: configure, aggregate,
// finalize, close. Not safe for concurrent use.
type Session struct {
	be       backend.Backend
	box      *sandbox.Dir
	strategy runner.Strategy

	quiet    bool
	live     bool
	entry    string
	mode     OutputMode
	outFile  string
	pidFile  string
	progArgs []string

	units     []string
	stdinFile string
	closed    bool
}

// New creates a session around be and provisions its sandbox. The
// CFLAGS environment variable is merged into backend options first, so
// explicit configuration overrides it. New takes ownership of the
// backend: on failure, and on Close, the backend is released.
func New(be backend.Backend, opts ...Option) (*Session, error) {
	s := &Session{be: be, entry: "main"}
	for _, opt := range opts {
		opt(s)
	}

	needsFile := s.mode == ObjectFile || s.mode == ExecutableFile
	if needsFile && s.outFile == "" {
		be.Close()
		return nil, &ConfigError{Reason: "output mode requires a filename"}
	}
	if !needsFile && s.outFile != "" {
		be.Close()
		return nil, &ConfigError{Reason: "output filename given without -c or -o"}
	}

	if s.strategy == nil {
		s.strategy = runner.Default(s.pidFile)
	}

	be.SetErrorFunc(func(msg string) {
		fmt.Fprintln(os.Stderr, msg)
	})

	if flags := env.Str("CFLAGS"); flags != "" {
		s.logf("cflags: %s", flags)
		be.SetOptions(flags)
	}

	box, err := sandbox.Provision()
	if err != nil {
		be.Close()
		return nil, &IOError{Op: "provision sandbox", Err: err}
	}
	s.box = box

	// Sandbox paths go in first so its shims take priority over
	// user-supplied search paths.
	be.AddLibraryPath(box.Path())
	be.AddIncludePath(box.Path())
	s.logf("sandbox: %s", box.Path())

	return s, nil
}

func (s *Session) logf(format string, args ...any) {
	if s.quiet {
		return
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

// maxDefineLen caps a -D expression.
const maxDefineLen = 1024

// Define parses a -D expression and defines the symbol on the backend.
// The expression is a bare name, or name=value with exactly one "=";
// name and value admit only alphanumerics and underscore.
func (s *Session) Define(expr string) error {
	name, value, err := parseDefine(expr)
	if err != nil {
		return err
	}
	s.be.DefineSymbol(name, value)
	return nil
}

func parseDefine(expr string) (name, value string, err error) {
	if expr == "" || len(expr) > maxDefineLen {
		return "", "", &ConfigError{Reason: "invalid define: " + expr}
	}
	eq := -1
	for i, r := range expr {
		switch {
		case r == '=':
			if eq >= 0 {
				return "", "", &ConfigError{Reason: "define has more than one '=': " + expr}
			}
			eq = i
		case r == '_',
			r >= '0' && r <= '9',
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z':
		default:
			return "", "", &ConfigError{Reason: "invalid character in define: " + expr}
		}
	}
	if eq < 0 {
		return expr, "", nil
	}
	if eq == 0 {
		return "", "", &ConfigError{Reason: "define has an empty name: " + expr}
	}
	return expr[:eq], expr[eq+1:], nil
}

// AddIncludePath appends a header search path.
func (s *Session) AddIncludePath(dir string) {
	s.logf("inc: %s", dir)
	s.be.AddIncludePath(dir)
}

// AddLibraryPath appends a library search path.
func (s *Session) AddLibraryPath(dir string) {
	s.logf("lib path: %s", dir)
	s.be.AddLibraryPath(dir)
}

// AddLibrary links the named library.
func (s *Session) AddLibrary(name string) error {
	s.logf("lib: %s", name)
	return s.be.AddLibrary(name)
}

// SetOptions applies an explicit compiler flag string, overriding any
// flags merged from the environment.
func (s *Session) SetOptions(flags string) {
	s.logf("cflags: %s", flags)
	s.be.SetOptions(flags)
}

// AddFile feeds one input file to the backend. The backend decides
// source-vs-object handling from the contents. A failed unit aborts the
// session; there is no partial recovery.
func (s *Session) AddFile(path string) error {
	s.logf("+ %s", path)
	if err := s.be.CompileFile(path); err != nil {
		return &CompileError{Unit: path, Err: err}
	}
	s.units = append(s.units, path)
	return nil
}

// AddStdin reads r to EOF and feeds the buffer to the backend as one
// unit named "-". The buffer is also spilled to a sandbox file: stdin
// is at EOF once drained, so an isolating strategy hands the spill to
// its re-executed child instead.
func (s *Session) AddStdin(r io.Reader) error {
	s.logf("| standard input")
	code, err := io.ReadAll(r)
	if err != nil {
		return &IOError{Op: "read stdin", Err: err}
	}
	spill := filepath.Join(s.box.Path(), "stdin")
	if err := os.WriteFile(spill, code, 0o644); err != nil {
		return &IOError{Op: "spill stdin", Err: err}
	}
	s.stdinFile = spill
	if err := s.be.CompileString(string(code)); err != nil {
		return &CompileError{Unit: "-", Err: err}
	}
	s.units = append(s.units, "-")
	return nil
}

// AddString feeds a raw buffer to the backend.
func (s *Session) AddString(code string) error {
	if err := s.be.CompileString(code); err != nil {
		return &CompileError{Unit: "-", Err: err}
	}
	s.units = append(s.units, "-")
	return nil
}

// Finalize dispatches on the output mode: emit an object or executable
// to disk, or relocate in memory, resolve the entry symbol and hand
// control to the execution trampoline. Selecting a file output never
// executes anything.
func (s *Session) Finalize(ctx context.Context) (runner.Result, error) {
	if s.live {
		return runner.Result{ExitCode: 1},
			&ConfigError{Reason: "live sessions execute through Eval"}
	}
	switch s.mode {
	case ObjectFile:
		s.be.SetOutputType(backend.OutputObject)
		if err := s.be.OutputFile(s.outFile); err != nil {
			return runner.Result{ExitCode: 1}, err
		}
		s.logf("wrote object: %s", s.outFile)
		return runner.Result{}, nil

	case ExecutableFile:
		s.be.SetOutputType(backend.OutputExe)
		if err := s.be.OutputFile(s.outFile); err != nil {
			return runner.Result{ExitCode: 1},
				fmt.Errorf("linker error compiling to file %s: %w", s.outFile, err)
		}
		s.logf("wrote executable: %s", s.outFile)
		return runner.Result{}, nil
	}

	s.be.SetOutputType(backend.OutputMemory)
	argv := runner.ProgramArgv(s.units, s.progArgs)
	s.be.SetArgs(argv)
	if err := s.be.Relocate(); err != nil {
		return runner.Result{ExitCode: 1}, &LinkError{Err: err}
	}
	entry := s.be.Resolve(s.entry)
	if entry == nil {
		return runner.Result{ExitCode: 1},
			&LinkError{Err: fmt.Errorf("undefined entry symbol: %s", s.entry)}
	}
	if s.stdinFile != "" {
		if c, ok := s.strategy.(runner.StdinCarrier); ok {
			c.CarryStdin(s.stdinFile)
		}
	}
	return s.strategy.Run(ctx, entry, argv)
}

// Eval runs one interactive cycle: compile the fragment into the
// persistent session, relocate incrementally, and run the entry if the
// fragment defines one. The returned bool reports whether anything ran.
// A compile failure does not poison the session; the caller reports it
// and keeps reading.
func (s *Session) Eval(ctx context.Context, fragment string) (runner.Result, bool, error) {
	if err := s.be.CompileString(fragment); err != nil {
		return runner.Result{ExitCode: 1}, false, &CompileError{Unit: "live", Err: err}
	}
	return s.evalRelocated(ctx)
}

// EvalFile is Eval for a fragment stored in a file.
func (s *Session) EvalFile(ctx context.Context, path string) (runner.Result, bool, error) {
	if err := s.be.CompileFile(path); err != nil {
		return runner.Result{ExitCode: 1}, false, &CompileError{Unit: path, Err: err}
	}
	return s.evalRelocated(ctx)
}

func (s *Session) evalRelocated(ctx context.Context) (runner.Result, bool, error) {
	// Only a fragment that itself exports the entry gets a run; an
	// earlier cycle's entry must not be re-run by a fragment that only
	// added declarations.
	defines := s.be.LastUnitExports(s.entry)
	if err := s.be.Relocate(); err != nil {
		return runner.Result{ExitCode: 1}, false, &LinkError{Err: err}
	}
	if !defines {
		return runner.Result{}, false, nil
	}
	entry := s.be.Resolve(s.entry)
	if entry == nil {
		return runner.Result{}, false, nil
	}
	// Interactive cycles execute in-process: accumulated session state
	// lives here, and a spawned child would not carry it.
	res, err := runner.Direct{}.Run(ctx, entry, []string{"-"})
	return res, true, err
}

// ReleaseSandbox detaches the sandbox directory from the session and
// returns its path. Close will no longer tear it down; the caller owns
// it from here.
func (s *Session) ReleaseSandbox() string {
	if s.box == nil {
		return ""
	}
	path := s.box.Path()
	s.box = nil
	return path
}

// Close releases the backend handle, then tears the sandbox down.
// Teardown failure is logged, never escalated: leaking a temp dir is
// preferable to masking the session's result. Idempotent, and safe on a
// partially-initialized session.
func (s *Session) Close() error {
	if s == nil || s.closed {
		return nil
	}
	s.closed = true
	var err error
	if s.be != nil {
		err = s.be.Close()
	}
	if s.box != nil {
		if terr := s.box.Teardown(); terr != nil {
			fmt.Fprintf(os.Stderr, "sandbox teardown: %v\n", terr)
		}
		s.box = nil
	}
	return err
}
