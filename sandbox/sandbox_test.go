package sandbox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestProvisionWritesHeaders(t *testing.T) {
	d, err := Provision()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer d.Teardown()

	entries, err := os.ReadDir(d.Path())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected generated headers in the sandbox")
	}
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".h") {
			t.Errorf("unexpected file in sandbox: %s", e.Name())
		}
	}
	for _, name := range []string{"jitcc.h", "jitcc_entry.h"} {
		if _, err := os.Stat(filepath.Join(d.Path(), name)); err != nil {
			t.Errorf("missing generated header %s: %v", name, err)
		}
	}
}

func TestProvisionUniqueNames(t *testing.T) {
	a, err := Provision()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Teardown()
	b, err := Provision()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer b.Teardown()

	if a.Path() == b.Path() {
		t.Errorf("two sandboxes share a directory: %s", a.Path())
	}
}

func TestTeardownRemovesTree(t *testing.T) {
	d, err := Provision()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	path := d.Path()

	if err := d.Teardown(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("sandbox should be gone, stat err=%v", err)
	}

	// Idempotent.
	if err := d.Teardown(); err != nil {
		t.Errorf("second teardown should be a no-op: %v", err)
	}
}

func TestTeardownToleratesExternalRemoval(t *testing.T) {
	d, err := Provision()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.RemoveAll(d.Path()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.Teardown(); err != nil {
		t.Errorf("teardown of already-missing tree should succeed: %v", err)
	}
}
