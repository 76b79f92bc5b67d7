package runner

import "testing"

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		lenAtDash int
		inputs    []string
		program   []string
	}{
		{
			name:      "no separator",
			args:      []string{"a.wasm", "b.wasm"},
			lenAtDash: -1,
			inputs:    []string{"a.wasm", "b.wasm"},
		},
		{
			name:      "separator splits",
			args:      []string{"a.wasm", "x", "y"},
			lenAtDash: 1,
			inputs:    []string{"a.wasm"},
			program:   []string{"x", "y"},
		},
		{
			name:      "separator first",
			args:      []string{"x"},
			lenAtDash: 0,
			inputs:    []string{},
			program:   []string{"x"},
		},
		{
			name:      "trailing separator",
			args:      []string{"a.wasm"},
			lenAtDash: 1,
			inputs:    []string{"a.wasm"},
			program:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inputs, program := SplitArgs(tt.args, tt.lenAtDash)
			if len(inputs) != len(tt.inputs) {
				t.Fatalf("inputs = %v, want %v", inputs, tt.inputs)
			}
			for i := range tt.inputs {
				if inputs[i] != tt.inputs[i] {
					t.Errorf("inputs[%d] = %q, want %q", i, inputs[i], tt.inputs[i])
				}
			}
			if len(program) != len(tt.program) {
				t.Fatalf("program = %v, want %v", program, tt.program)
			}
			for i := range tt.program {
				if program[i] != tt.program[i] {
					t.Errorf("program[%d] = %q, want %q", i, program[i], tt.program[i])
				}
			}
		})
	}
}

func TestProgramArgv(t *testing.T) {
	argv := ProgramArgv([]string{"prog.wasm"}, []string{"a", "b"})
	want := []string{"prog.wasm", "a", "b"}
	for i := range want {
		if argv[i] != want[i] {
			t.Errorf("argv[%d] = %q, want %q", i, argv[i], want[i])
		}
	}

	argv = ProgramArgv([]string{"-"}, []string{"a"})
	if argv[0] != "-" {
		t.Errorf("stdin-sourced argv[0] = %q, want -", argv[0])
	}

	argv = ProgramArgv(nil, nil)
	if len(argv) != 1 || argv[0] != "-" {
		t.Errorf("empty inputs argv = %v, want [-]", argv)
	}
}
