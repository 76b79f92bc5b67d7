package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/caffeineduck/jitcc/archive"
	"github.com/caffeineduck/jitcc/backend/wasm"
	"github.com/caffeineduck/jitcc/driver"
	"github.com/caffeineduck/jitcc/runner"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const version = "0.2.0"

var rootCmd = &cobra.Command{
	Use:   "jitcc [flags] files... [-- program arguments]",
	Short: "Just-in-time compile and run code without leaving a binary behind",
	Long: `jitcc - compile source units and run them immediately.

Inputs can be files, "-" for standard input, or nothing at all: with no
inputs and a terminal, jitcc starts an interactive live session; with
piped input it reads code from stdin. Everything after "--" is passed
verbatim to the executed program as its own arguments.

By default nothing persistent is written: units are relocated in memory
and the entry point runs in an isolated child process. Use -c or -o to
compile to a file instead of executing.`,
	Version: version,
	Args:    cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(run(cmd, args))
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.Flags()
	f.BoolP("quiet", "q", false, "Only print errors and program output")
	f.StringArrayP("define", "D", nil, "Define a macro symbol or key=value (repeatable)")
	f.StringP("cflags", "C", "", "Compiler flags (default from env var CFLAGS)")
	f.StringArrayP("include", "I", nil, "Also search this folder for headers (repeatable)")
	f.StringArrayP("lib", "l", nil, "Link the named library (repeatable)")
	f.StringArrayP("libdir", "L", nil, "Also search this folder for libraries (repeatable)")
	f.StringP("entry", "e", "main", "Entry point function")
	f.StringP("pid-file", "p", "", "Write pid of the executed program to this file")
	f.BoolP("compile-only", "c", false, "Compile a single unit to an object file, do not execute")
	f.StringP("output", "o", "", "Compile to an executable file, do not execute")
	f.Bool("temp", false, "Create the runtime temporary dir, print it and exit")
	f.String("xtgz", "", "Extract all contents from a USTAR tar.gz and exit")
	f.Bool("live", false, "Interactive live coding session")
}

func fail(err error) int {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	return 1
}

func run(cmd *cobra.Command, args []string) int {
	flags := cmd.Flags()
	quiet, _ := flags.GetBool("quiet")
	defines, _ := flags.GetStringArray("define")
	cflags, _ := flags.GetString("cflags")
	includes, _ := flags.GetStringArray("include")
	libs, _ := flags.GetStringArray("lib")
	libDirs, _ := flags.GetStringArray("libdir")
	entry, _ := flags.GetString("entry")
	pidFile, _ := flags.GetString("pid-file")
	compileOnly, _ := flags.GetBool("compile-only")
	output, _ := flags.GetString("output")
	temp, _ := flags.GetBool("temp")
	xtgz, _ := flags.GetString("xtgz")
	live, _ := flags.GetBool("live")

	// An isolated child re-runs this whole pipeline; keep it quiet so
	// diagnostics print once, from the parent. The parent drained
	// stdin while aggregating, so the child reads the spill file it
	// handed down instead.
	stdin := io.Reader(os.Stdin)
	if runner.IsChild() {
		quiet = true
		if spill, ok := runner.ChildStdin(); ok {
			defer spill.Close()
			stdin = spill
		}
	}

	if xtgz != "" {
		src, err := os.Open(xtgz)
		if err != nil {
			return fail(err)
		}
		defer src.Close()
		if !quiet {
			fmt.Fprintf(os.Stderr, "extract contents of: %s\n", xtgz)
		}
		if err := archive.Extract(src, "."); err != nil {
			return fail(err)
		}
		return 0
	}

	inputs, progArgs := runner.SplitArgs(args, cmd.ArgsLenAtDash())

	mode := driver.MemoryExec
	outFile := ""
	switch {
	case compileOnly:
		if len(inputs) != 1 {
			return fail(fmt.Errorf("compiling to an object file supports exactly one input"))
		}
		mode = driver.ObjectFile
		outFile = output
		if outFile == "" {
			outFile = objectName(inputs[0])
		}
	case output != "":
		mode = driver.ExecutableFile
		outFile = output
	}

	// With no inputs, a terminal means live mode and a pipe means
	// code on stdin.
	stdinTTY := term.IsTerminal(int(os.Stdin.Fd()))
	if len(inputs) == 0 && !temp && mode == driver.MemoryExec && stdinTTY {
		live = true
	}

	sess, err := driver.New(wasm.New(),
		driver.WithQuiet(quiet),
		driver.WithEntry(entry),
		driver.WithOutput(mode, outFile),
		driver.WithPIDFile(pidFile),
		driver.WithLive(live),
		driver.WithProgramArgs(progArgs),
	)
	if err != nil {
		return fail(err)
	}
	defer sess.Close()

	for _, expr := range defines {
		if err := sess.Define(expr); err != nil {
			return fail(err)
		}
	}
	if cflags != "" {
		sess.SetOptions(cflags)
	}
	for _, dir := range includes {
		sess.AddIncludePath(dir)
	}
	for _, dir := range libDirs {
		sess.AddLibraryPath(dir)
	}
	for _, lib := range libs {
		if err := sess.AddLibrary(lib); err != nil {
			return fail(err)
		}
	}

	if temp {
		fmt.Println(sess.ReleaseSandbox())
		return 0
	}

	if live {
		if !stdinTTY {
			return fail(driver.ErrNoTTY)
		}
		return runLive(sess)
	}

	if len(inputs) == 0 {
		if !quiet {
			fmt.Fprintln(os.Stderr, "no files on commandline, reading code from stdin")
		}
		if err := sess.AddStdin(stdin); err != nil {
			return fail(err)
		}
	}
	for _, path := range inputs {
		if path == "-" {
			if err := sess.AddStdin(stdin); err != nil {
				return fail(err)
			}
			continue
		}
		if err := sess.AddFile(path); err != nil {
			return fail(err)
		}
	}

	res, err := sess.Finalize(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return res.ExitCode
	}
	if res.Signal != nil {
		fmt.Fprintf(os.Stderr, "program terminated by signal: %v\n", res.Signal)
	}
	return res.ExitCode
}

func objectName(input string) string {
	base := input
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return base + ".o"
}
