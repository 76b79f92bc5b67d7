package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/caffeineduck/jitcc/driver"
	"github.com/caffeineduck/jitcc/runner"
	"github.com/chzyer/readline"
)

// runLive drives the interactive loop: read a fragment, feed it into
// the persistent session, run any entry point it defines, repeat.
// Declarations accumulate across cycles. A fragment naming an existing
// file is compiled from that file, so live coding can be
// edit-save-reload.
func runLive(sess *driver.Session) int {
	home, _ := os.UserHomeDir()
	historyFile := filepath.Join(home, ".jitcc_history")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "jit> ",
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error initializing readline: %v\n", err)
		return 1
	}
	defer rl.Close()

	fmt.Fprintln(os.Stderr, "jitcc live session (type 'exit' to quit, Ctrl+D to exit)")

	var multiLine strings.Builder
	inMultiLine := false

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if inMultiLine {
					multiLine.Reset()
					inMultiLine = false
					rl.SetPrompt("jit> ")
				}
				continue
			}
			if err == io.EOF {
				fmt.Println()
				return 0
			}
			fmt.Fprintf(os.Stderr, "error reading input: %v\n", err)
			return 1
		}

		if strings.HasSuffix(line, "\\") {
			multiLine.WriteString(strings.TrimSuffix(line, "\\"))
			multiLine.WriteString("\n")
			inMultiLine = true
			rl.SetPrompt(".... ")
			continue
		}

		if inMultiLine {
			multiLine.WriteString(line)
			line = multiLine.String()
			multiLine.Reset()
			inMultiLine = false
			rl.SetPrompt("jit> ")
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return 0
		}

		res, ran, err := evalFragment(sess, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		if ran && res.ExitCode != 0 {
			fmt.Fprintf(os.Stderr, "exit status %d\n", res.ExitCode)
		}
	}
}

func evalFragment(sess *driver.Session, line string) (res runner.Result, ran bool, err error) {
	ctx := context.Background()
	if fi, statErr := os.Stat(line); statErr == nil && fi.Mode().IsRegular() {
		return sess.EvalFile(ctx, line)
	}
	return sess.Eval(ctx, line)
}
