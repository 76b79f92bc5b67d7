// Package driver implements the compile-and-execute pipeline: a
// session aggregates source units and compiler configuration against an
// opaque backend, provisions an ephemeral sandbox directory, and
// finalizes to one of three terminal actions: emit a relocatable
// object, emit a linked executable, or relocate in memory and run the
// entry point through the execution trampoline.
//
// # Basic Usage
//
//	sess, err := driver.New(wasm.New())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.Close()
//
//	if err := sess.AddFile("prog.wasm"); err != nil {
//	    log.Fatal(err)
//	}
//	res, err := sess.Finalize(ctx)
//
// # Lifecycle
//
// A session is strictly sequential: configure, aggregate, finalize,
// close. Close releases the backend handle first and then tears the
// sandbox down, on every exit path; it is idempotent and safe on a
// partially-initialized session.
//
// # Interactive mode
//
// Eval feeds one fragment into the persistent session per cycle, so
// declarations accumulate across cycles; a compile failure is reported
// and the session keeps accepting input.
package driver
