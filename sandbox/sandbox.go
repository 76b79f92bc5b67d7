// Package sandbox manages the ephemeral working directory a compiler
// session executes from. The directory is uniquely named, holds a fixed
// set of generated support headers bridging compiled code to
// host-provided facilities, and is registered by the session as both an
// include and a library search path.
package sandbox

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed headers/*.h
var headerFS embed.FS

// Dir is an exclusively-owned ephemeral directory. Never shared between
// sessions; the name carries a random suffix from os.MkdirTemp.
type Dir struct {
	path     string
	tornDown bool
}

// Provision creates the sandbox directory and writes every support
// header into it. On any failure it removes whatever it created, so a
// half-built sandbox is never left behind.
func Provision() (*Dir, error) {
	path, err := os.MkdirTemp("", "jitcc-exec-")
	if err != nil {
		return nil, fmt.Errorf("create sandbox dir: %w", err)
	}
	if err := writeHeaders(path); err != nil {
		os.RemoveAll(path)
		return nil, err
	}
	return &Dir{path: path}, nil
}

func writeHeaders(dir string) error {
	entries, err := fs.ReadDir(headerFS, "headers")
	if err != nil {
		return fmt.Errorf("read embedded headers: %w", err)
	}
	for _, e := range entries {
		data, err := headerFS.ReadFile("headers/" + e.Name())
		if err != nil {
			return fmt.Errorf("read embedded header %s: %w", e.Name(), err)
		}
		if err := os.WriteFile(filepath.Join(dir, e.Name()), data, 0o644); err != nil {
			return fmt.Errorf("write header %s: %w", e.Name(), err)
		}
	}
	return nil
}

// Path returns the sandbox directory path.
func (d *Dir) Path() string {
	return d.path
}

// Teardown removes the directory tree. Idempotent: a second call, or a
// call after the tree was already removed externally, is a no-op.
func (d *Dir) Teardown() error {
	if d.tornDown {
		return nil
	}
	d.tornDown = true
	if err := os.RemoveAll(d.path); err != nil {
		return fmt.Errorf("remove sandbox dir: %w", err)
	}
	return nil
}
