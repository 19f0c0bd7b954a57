package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJackCompiler(t *testing.T) {
	run := func(t *testing.T, className string, source string, options map[string]string, expected []string) []string {
		dir := t.TempDir()
		input := filepath.Join(dir, className+".jack")
		require.NoError(t, os.WriteFile(input, []byte(source), 0644))

		status := Handler([]string{input}, options)
		require.Equal(t, 0, status)

		compiled, err := os.ReadFile(filepath.Join(dir, className+".vm"))
		require.NoError(t, err)

		lines := strings.Split(strings.TrimRight(string(compiled), "\n"), "\n")
		if expected != nil {
			require.Equal(t, expected, lines)
		}
		return lines
	}

	t.Run("Compiles arithmetic into a callable function", func(t *testing.T) {
		run(t, "Main", `
			class Main {
				function int compute(int a, int b) {
					return a + b;
				}
			}
		`, nil, []string{
			"function Main.compute 0",
			"push argument 0",
			"push argument 1",
			"add",
			"return",
		})
	})

	t.Run("Resolves calls into the standard library", func(t *testing.T) {
		lines := run(t, "Main", `
			class Main {
				function void main() {
					do Output.printInt(42);
					return;
				}
			}
		`, map[string]string{"stdlib": "true"}, nil)

		require.Contains(t, lines, "function Main.main 0")
		require.Contains(t, lines, "push constant 42")
		require.Contains(t, lines, "call Output.printInt 1")
		require.Contains(t, lines, "pop temp 0")
	})

	t.Run("Type checking rejects an incompatible assignment", func(t *testing.T) {
		dir := t.TempDir()
		input := filepath.Join(dir, "Main.jack")
		source := `
			class Main {
				function void main() {
					var int x;
					let x = "oops";
					return;
				}
			}
		`
		require.NoError(t, os.WriteFile(input, []byte(source), 0644))

		status := Handler([]string{input}, map[string]string{"typecheck": "true"})
		require.NotEqual(t, 0, status)
	})
}
