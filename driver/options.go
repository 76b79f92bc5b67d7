package driver

import "github.com/caffeineduck/jitcc/runner"

// Option configures a Session at creation time.
type Option func(*Session)

// WithQuiet suppresses informational output; errors and program output
// still print.
func WithQuiet(quiet bool) Option {
	return func(s *Session) { s.quiet = quiet }
}

// WithEntry sets the entry symbol resolved after relocation. Default is
// "main".
func WithEntry(name string) Option {
	return func(s *Session) {
		if name != "" {
			s.entry = name
		}
	}
}

// WithOutput selects the output mode and, for file outputs, the target
// filename. New rejects a filename without a file mode and vice versa.
func WithOutput(mode OutputMode, filename string) Option {
	return func(s *Session) {
		s.mode = mode
		s.outFile = filename
	}
}

// WithPIDFile makes the execution strategy write the executed program's
// pid to path before waiting on it.
func WithPIDFile(path string) Option {
	return func(s *Session) { s.pidFile = path }
}

// WithLive marks the session as interactive.
func WithLive(live bool) Option {
	return func(s *Session) { s.live = live }
}

// WithProgramArgs sets the arguments forwarded verbatim to the executed
// entry point (everything after the "--" separator).
func WithProgramArgs(args []string) Option {
	return func(s *Session) { s.progArgs = args }
}

// WithStrategy overrides the execution strategy. The default is chosen
// once by platform capability.
func WithStrategy(strategy runner.Strategy) Option {
	return func(s *Session) { s.strategy = strategy }
}
