// Package backend defines the compiler capability the driver is built
// around: parse and compile source units, manage symbols and search
// paths, and either emit the result to a file or relocate it into an
// in-process image with a resolvable entry point.
package backend

import "context"

// OutputType selects what Relocate/OutputFile produce.
type OutputType int

const (
	// OutputMemory relocates units into an in-process image for
	// immediate execution. This is the default.
	OutputMemory OutputType = iota
	// OutputObject emits a relocatable object file.
	OutputObject
	// OutputExe emits a standalone executable.
	OutputExe
)

func (t OutputType) String() string {
	switch t {
	case OutputObject:
		return "object"
	case OutputExe:
		return "executable"
	default:
		return "memory"
	}
}

// ErrorFunc receives every diagnostic the backend produces. It is the
// single funnel for compile and link messages; backends must not print
// diagnostics anywhere else.
type ErrorFunc func(msg string)

// Entry is a resolved entry point of a relocated image. The argument
// vector follows the hosted-program convention: argv[0] is the invoked
// name, the rest are the program's own arguments. Backends whose
// execution model fixes arguments earlier (e.g. at instantiation) may
// ignore the slice; the driver passes the same vector in both places.
type Entry func(ctx context.Context, argv []string) (int, error)

// Backend is the opaque compile/link capability. Implementations are
// single-owner and not safe for concurrent use; the driver session owns
// one Backend for its whole lifetime.
type Backend interface {
	// DefineSymbol defines a preprocessor-style symbol. An empty value
	// defines the bare name.
	DefineSymbol(name, value string)

	// AddIncludePath appends a header search path.
	AddIncludePath(dir string)

	// AddLibraryPath appends a library search path.
	AddLibraryPath(dir string)

	// AddLibrary links the named library, searched in the registered
	// library paths.
	AddLibrary(name string) error

	// SetOptions applies a backend-specific flag string. Unrecognized
	// flags are tolerated and ignored.
	SetOptions(flags string)

	// SetArgs fixes the argument vector the executed image will
	// observe. Must be called before Relocate for backends that bind
	// arguments at link time.
	SetArgs(argv []string)

	// SetOutputType selects the product of this compilation.
	SetOutputType(t OutputType)

	// SetErrorFunc installs the diagnostic funnel.
	SetErrorFunc(fn ErrorFunc)

	// CompileFile compiles one unit from a file path. The backend
	// decides source-vs-object handling from the contents.
	CompileFile(path string) error

	// CompileString compiles one unit from an in-memory buffer.
	CompileString(code string) error

	// OutputFile writes the compiled result to path, per the configured
	// output type. Never executes anything.
	OutputFile(path string) error

	// Relocate links all compiled units into an executable in-process
	// image. Callable more than once; units already relocated stay
	// live, so symbols accumulate across calls. A unit that fails to
	// relocate is discarded, so the failure does not poison later
	// calls.
	Relocate() error

	// Resolve returns the entry point for a named symbol of the
	// relocated image, or nil if the symbol is not defined.
	Resolve(name string) Entry

	// LastUnitExports reports whether the most recently compiled unit
	// exports the named symbol, under the same name fallbacks Resolve
	// applies.
	LastUnitExports(name string) bool

	// Close releases the backend. Idempotent.
	Close() error
}
