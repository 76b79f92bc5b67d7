//go:build unix

package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/caffeineduck/jitcc/backend"
	"golang.org/x/sys/unix"
)

// Isolated re-executes the driver binary so the program image runs in a
// child process. The entry argument is unused: the child rebuilds the
// image from the same inputs and invokes the entry itself, the Go
// rendition of a fork that inherits the relocated image.
type Isolated struct {
	// PIDFile, when set, receives the child pid before the wait.
	PIDFile string
	// Args overrides the re-exec argument vector. Defaults to
	// os.Args[1:].
	Args []string
	// Env entries appended to the child environment.
	Env []string

	stdinPath string
}

// CarryStdin points the re-executed child at a spill file holding the
// stdin bytes the parent already drained.
func (s *Isolated) CarryStdin(path string) { s.stdinPath = path }

func (s Isolated) Run(ctx context.Context, _ backend.Entry, argv []string) (Result, error) {
	exe, err := os.Executable()
	if err != nil {
		return Result{ExitCode: 1}, fmt.Errorf("locate driver binary: %w", err)
	}

	args := s.Args
	if args == nil {
		args = os.Args[1:]
	}

	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), childEnv+"=1")
	if s.stdinPath != "" {
		cmd.Env = append(cmd.Env, stdinEnv+"="+s.stdinPath)
	}
	cmd.Env = append(cmd.Env, s.Env...)

	if err := cmd.Start(); err != nil {
		return Result{ExitCode: 1}, fmt.Errorf("spawn child: %w", err)
	}

	if s.PIDFile != "" {
		if err := writePID(s.PIDFile, cmd.Process.Pid); err != nil {
			fmt.Fprintf(os.Stderr, "cannot write pid file: %v\n", err)
		}
	}

	err = cmd.Wait()
	if err == nil {
		return Result{ExitCode: 0}, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return Result{ExitCode: 1}, fmt.Errorf("wait for child: %w", err)
	}

	ws := unix.WaitStatus(exitErr.Sys().(syscall.WaitStatus))
	if ws.Signaled() {
		sig := ws.Signal()
		return Result{ExitCode: 128 + int(sig), Signal: sig}, nil
	}
	return Result{ExitCode: ws.ExitStatus()}, nil
}

func platformDefault(pidFile string) Strategy {
	if _, err := os.Executable(); err != nil {
		return Direct{PIDFile: pidFile}
	}
	return &Isolated{PIDFile: pidFile}
}
