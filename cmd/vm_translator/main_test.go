package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVMTranslator(t *testing.T) {
	run := func(t *testing.T, source string, options map[string]string, expected []string) {
		dir := t.TempDir()
		input := filepath.Join(dir, "main.vm")
		output := filepath.Join(dir, "main.asm")

		require.NoError(t, os.WriteFile(input, []byte(source), 0644))

		if options == nil {
			options = map[string]string{}
		}
		options["output"] = output

		status := Handler([]string{input}, options)
		require.Equal(t, 0, status)

		compiled, err := os.ReadFile(output)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimRight(string(compiled), "\n"), "\n")
		require.Equal(t, expected, lines)
	}

	t.Run("Adds two constants", func(t *testing.T) {
		run(t, `
			push constant 7
			push constant 8
			add
		`, nil, []string{
			"@7",
			"D=A",
			"@SP",
			"A=M",
			"M=D",
			"@SP",
			"M=M+1",
			"@8",
			"D=A",
			"@SP",
			"A=M",
			"M=D",
			"@SP",
			"M=M+1",
			"@SP",
			"AM=M-1",
			"D=M",
			"A=A-1",
			"M=D+M",
			"(END)",
			"@END",
			"0;JMP",
		})
	})

	t.Run("Pops into local segment and pushes it back", func(t *testing.T) {
		run(t, `
			push constant 42
			pop local 0
			push local 0
		`, nil, []string{
			"@42",
			"D=A",
			"@SP",
			"A=M",
			"M=D",
			"@SP",
			"M=M+1",
			"@LCL",
			"D=M",
			"@0",
			"D=D+A",
			"@R13",
			"M=D",
			"@SP",
			"AM=M-1",
			"D=M",
			"@R13",
			"A=M",
			"M=D",
			"@LCL",
			"D=M",
			"@0",
			"A=D+A",
			"D=M",
			"@SP",
			"A=M",
			"M=D",
			"@SP",
			"M=M+1",
			"(END)",
			"@END",
			"0;JMP",
		})
	})
}
