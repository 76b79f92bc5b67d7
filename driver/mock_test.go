package driver

import (
	"context"
	"strconv"
	"strings"

	"github.com/caffeineduck/jitcc/backend"
)

// mockBackend implements backend.Backend for testing session logic
// without a real compiler. Units of the form "name=code" register an
// entry symbol returning that exit code.
type mockBackend struct {
	defines  map[string]string
	incPaths []string
	libPaths []string
	libs     []string
	flags    []string
	argv     []string
	output   backend.OutputType
	errFn    backend.ErrorFunc

	compiled []string
	outputs  []string
	symbols  map[string]int

	compileErr  error
	relocateErr error
	outputErr   error

	relocates int
	ran       []string
	lastArgv  []string
	closed    int
}

func newMockBackend() *mockBackend {
	return &mockBackend{
		defines: make(map[string]string),
		symbols: make(map[string]int),
	}
}

func (m *mockBackend) DefineSymbol(name, value string) { m.defines[name] = value }

func (m *mockBackend) AddIncludePath(dir string) { m.incPaths = append(m.incPaths, dir) }

func (m *mockBackend) AddLibraryPath(dir string) { m.libPaths = append(m.libPaths, dir) }

func (m *mockBackend) AddLibrary(name string) error {
	m.libs = append(m.libs, name)
	return nil
}

func (m *mockBackend) SetOptions(flags string) { m.flags = append(m.flags, flags) }

func (m *mockBackend) SetArgs(argv []string) { m.argv = argv }

func (m *mockBackend) SetOutputType(t backend.OutputType) { m.output = t }

func (m *mockBackend) SetErrorFunc(fn backend.ErrorFunc) { m.errFn = fn }

func (m *mockBackend) CompileFile(path string) error {
	return m.compileUnit(path)
}

func (m *mockBackend) CompileString(code string) error {
	return m.compileUnit(code)
}

func (m *mockBackend) compileUnit(unit string) error {
	if m.compileErr != nil {
		if m.errFn != nil {
			m.errFn(m.compileErr.Error())
		}
		return m.compileErr
	}
	m.compiled = append(m.compiled, unit)
	return nil
}

func (m *mockBackend) OutputFile(path string) error {
	m.outputs = append(m.outputs, path)
	return m.outputErr
}

func (m *mockBackend) Relocate() error {
	if m.relocateErr != nil {
		return m.relocateErr
	}
	m.relocates++
	for _, unit := range m.compiled {
		for _, line := range strings.Fields(unit) {
			name, codeStr, ok := strings.Cut(line, "=")
			if !ok {
				continue
			}
			if code, err := strconv.Atoi(codeStr); err == nil {
				m.symbols[name] = code
			}
		}
	}
	return nil
}

func (m *mockBackend) LastUnitExports(name string) bool {
	if len(m.compiled) == 0 {
		return false
	}
	for _, line := range strings.Fields(m.compiled[len(m.compiled)-1]) {
		if sym, _, ok := strings.Cut(line, "="); ok && sym == name {
			return true
		}
	}
	return false
}

func (m *mockBackend) Resolve(name string) backend.Entry {
	code, ok := m.symbols[name]
	if !ok {
		return nil
	}
	return func(ctx context.Context, argv []string) (int, error) {
		m.ran = append(m.ran, name)
		m.lastArgv = argv
		return code, nil
	}
}

func (m *mockBackend) Close() error {
	m.closed++
	return nil
}
