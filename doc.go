// Package jitcc is a compile-and-execute driver: it turns source
// fragments (files, standard input, or an interactive stream) into a
// single linked in-memory image and runs it immediately, without ever
// producing a persistent binary unless explicitly requested.
//
// # Overview
//
// A [github.com/caffeineduck/jitcc/driver.Session] aggregates source
// units and compiler configuration against an opaque backend, executes
// from an ephemeral sandbox directory, and dispatches to one of three
// terminal actions: emit a relocatable object, emit a linked
// executable, or relocate in memory and run the entry point.
//
// # Basic Usage
//
//	sess, err := driver.New(wasm.New())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.Close()
//
//	sess.AddFile("prog.wasm")
//	res, err := sess.Finalize(ctx)
//	os.Exit(res.ExitCode)
//
// # Execution isolation
//
// On platforms that support it, the entry point runs in a re-executed
// child process, so a crash in just-compiled code never takes the
// driver down; elsewhere the entry is called in-process, a documented
// degradation.
//
// See the driver, backend, backend/wasm, sandbox, runner and archive
// packages for detailed API documentation.
package jitcc
