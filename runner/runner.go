// Package runner invokes the entry point of a freshly built program
// image and yields its exit status.
//
// Two strategies implement the same contract. Isolated re-executes the
// driver binary as a child process carrying a marker environment
// variable; the child rebuilds and runs the image directly while the
// parent waits and translates the wait status, so a crash in executed
// code never takes the driver down. Direct calls the entry in-process:
// no isolation is possible, which is the accepted degradation on
// platforms (or modes, like the interactive loop) where spawning a
// child is not usable. The variant is chosen once by capability, never
// per-call.
package runner

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/caffeineduck/jitcc/backend"
)

// childEnv marks a re-executed child invocation. The child runs the
// whole pipeline with the Direct strategy.
const childEnv = "JITCC_ISOLATED"

// stdinEnv points a re-executed child at the spilled stdin buffer. The
// parent drains stdin while aggregating, so by the time the child
// starts the real stream is at EOF and only the spill file carries the
// code.
const stdinEnv = "JITCC_STDIN"

// Result is the outcome of one execution request. Signal is nil unless
// the program was terminated by a signal (isolated strategy only).
type Result struct {
	ExitCode int
	Signal   os.Signal
}

// Strategy runs a resolved entry point with a forwarded argument
// vector. The call blocks until the program terminates; no timeout is
// imposed, so a hung program hangs the driver the same way a
// directly-invoked program would.
type Strategy interface {
	Run(ctx context.Context, entry backend.Entry, argv []string) (Result, error)
}

// Direct calls the entry in the current process. A fatal fault in the
// executed code terminates the driver itself.
type Direct struct {
	// PIDFile, when set, receives this process's pid before the call.
	PIDFile string
}

func (d Direct) Run(ctx context.Context, entry backend.Entry, argv []string) (Result, error) {
	if d.PIDFile != "" {
		if err := writePID(d.PIDFile, os.Getpid()); err != nil {
			fmt.Fprintf(os.Stderr, "cannot write pid file: %v\n", err)
		}
	}
	code, err := entry(ctx, argv)
	if err != nil {
		return Result{ExitCode: 1}, err
	}
	return Result{ExitCode: code}, nil
}

// StdinCarrier is implemented by strategies that re-execute the driver
// and must hand an already-drained stdin buffer down to the child.
type StdinCarrier interface {
	CarryStdin(path string)
}

// IsChild reports whether this process is a re-executed isolated child.
func IsChild() bool {
	return os.Getenv(childEnv) != ""
}

// ChildStdin returns the stdin spill file handed down by an isolating
// parent, if any.
func ChildStdin() (*os.File, bool) {
	path := os.Getenv(stdinEnv)
	if path == "" {
		return nil, false
	}
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot read spilled stdin: %v\n", err)
		return nil, false
	}
	return f, true
}

// Default selects the strategy for this invocation: Direct inside an
// isolated child, the platform default otherwise. The child never
// writes the pid file; the isolating parent already wrote this
// process's pid before its wait.
func Default(pidFile string) Strategy {
	if IsChild() {
		return Direct{}
	}
	return platformDefault(pidFile)
}

func writePID(path string, pid int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o644)
}
