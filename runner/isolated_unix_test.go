//go:build unix

package runner

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"
)

// TestHelperProcess is not a real test: the isolated-strategy tests
// re-execute the test binary with -test.run pointing here and drive the
// behavior through the environment.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("JITCC_HELPER") == "" {
		return
	}
	switch os.Getenv("JITCC_HELPER_MODE") {
	case "exit42":
		os.Exit(42)
	case "sigsegv":
		syscall.Kill(os.Getpid(), syscall.SIGSEGV)
		time.Sleep(5 * time.Second)
		os.Exit(3)
	case "spill":
		f, ok := ChildStdin()
		if !ok {
			os.Exit(1)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil || string(data) != "spilled code" {
			os.Exit(2)
		}
		os.Exit(0)
	}
	os.Exit(0)
}

func helperStrategy(mode, pidFile string) Isolated {
	return Isolated{
		PIDFile: pidFile,
		Args:    []string{"-test.run=TestHelperProcess"},
		Env:     []string{"JITCC_HELPER=1", "JITCC_HELPER_MODE=" + mode},
	}
}

func TestIsolatedExitCode(t *testing.T) {
	res, err := helperStrategy("exit42", "").Run(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 42 {
		t.Errorf("expected exit code 42, got %d", res.ExitCode)
	}
	if res.Signal != nil {
		t.Errorf("normal exit must not report a signal, got %v", res.Signal)
	}
}

func TestIsolatedSignalTermination(t *testing.T) {
	// The child kills itself; the driver must survive, report the
	// signal, and keep going.
	res, err := helperStrategy("sigsegv", "").Run(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Signal != syscall.SIGSEGV {
		t.Fatalf("expected SIGSEGV, got %v", res.Signal)
	}
	if res.ExitCode != 128+int(syscall.SIGSEGV) {
		t.Errorf("expected exit code %d, got %d", 128+int(syscall.SIGSEGV), res.ExitCode)
	}
}

func TestIsolatedCarriesSpilledStdin(t *testing.T) {
	spill := filepath.Join(t.TempDir(), "stdin")
	if err := os.WriteFile(spill, []byte("spilled code"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := helperStrategy("spill", "")
	s.CarryStdin(spill)
	res, err := s.Run(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("child could not read the spilled stdin, exit %d", res.ExitCode)
	}
}

func TestIsolatedWritesChildPID(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "pid")
	if _, err := helperStrategy("exit42", pidFile).Run(context.Background(), nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(pidFile)
	if err != nil {
		t.Fatalf("pid file not written: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		t.Errorf("pid file = %q, want a positive pid", data)
	}
	if pid == os.Getpid() {
		t.Error("pid file must carry the child pid, not the driver's")
	}
}
