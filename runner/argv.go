package runner

// SplitArgs splits positional arguments at the "--" separator into
// driver inputs and program arguments. lenAtDash is the index the CLI
// parser reports for the separator, or -1 when none was given; with no
// separator every argument is a driver input.
func SplitArgs(args []string, lenAtDash int) (inputs, program []string) {
	if lenAtDash < 0 {
		return args, nil
	}
	return args[:lenAtDash], args[lenAtDash:]
}

// ProgramArgv builds the argument vector the executed entry point
// observes: argv[0] is the first input file by convention, or "-" when
// code came from standard input, followed by the program arguments
// verbatim and in order.
func ProgramArgv(inputs, program []string) []string {
	argv0 := "-"
	if len(inputs) > 0 && inputs[0] != "-" {
		argv0 = inputs[0]
	}
	return append([]string{argv0}, program...)
}
