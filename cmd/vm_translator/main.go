package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	u "github.com/araddon/gou"
	"github.com/teris-io/cli"
	"its-hmny.dev/nand2tetris/pkg/asm"
	"its-hmny.dev/nand2tetris/pkg/vm"
)

var Description = strings.ReplaceAll(`
The VM Translator translates programs (composed of multiple modules/files) written in 
the VM language into Hack assembly code that can be further elaborated. The VM language
is a higher-level (bytecode'like) language tailored for use with the Hack computer arch.
`, "\n", " ")

var VmTranslator = cli.New(Description).
	// 'AsOptional()' allows to have more than one input .vm file
	WithArg(cli.NewArg("inputs", "The bytecode (.vm) file to be compiled").
		AsOptional().WithType(cli.TypeString)).
	WithOption(cli.NewOption("output", "The compiled binary output (.asm)").
		WithType(cli.TypeString)).
	WithOption(cli.NewOption("bootstrap", "Includes bootstrap code in the final .asm file "+
		"(defaults to on for directory inputs, off for a single file)").
		WithType(cli.TypeString)).
	WithOption(cli.NewOption("debug", "Enables leveled debug logging").
		WithType(cli.TypeBool)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if _, enabled := options["debug"]; enabled {
		u.SetupLogging("debug")
	} else {
		u.SetupLogging("warn")
	}

	if len(args) < 1 || options["output"] == "" {
		fmt.Printf("ERROR: Not enough arguments provided, use --help\n")
		return -1
	}

	output, err := os.Create(options["output"])
	if err != nil {
		fmt.Printf("ERROR: Unable to open output file: %s\n", err)
		return -1
	}
	defer output.Close()

	// Bootstrap (Stack Pointer init followed by a genuine 'call Sys.init 0', going through the
	// exact same calling convention as any other call in the program) defaults to on whenever
	// any input is a directory, since a multi-file program needs Sys.init to kick it off; a
	// single bare .vm file is most often a standalone scenario test run without a Sys class,
	// so it defaults to off there. Either default can be overridden with '--bootstrap=<bool>'.
	bootstrap := false
	for _, input := range args {
		if info, err := os.Stat(input); err == nil && info.IsDir() {
			bootstrap = true
			break
		}
	}
	if raw, set := options["bootstrap"]; set {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			bootstrap = parsed
		} else {
			bootstrap = true
		}
	}

	// The aggregation of every Translation Unit (TU), i.e. every .vm file found while
	// walking the inputs: a bare file is used as-is, a directory is walked recursively.
	TUs := []string{}
	for _, input := range args {
		filepath.Walk(input, func(walked string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || filepath.Ext(walked) != ".vm" {
				return nil
			}
			TUs = append(TUs, walked)
			return nil
		})
	}

	// Allocates a 'vm.Program' struct to save all the parsed translation unit
	// (the .vm files) that will be parsed and lowered independently and then
	// sent to the codegen phases (that will create a monolithic compiled output).
	program := vm.Program{}

	for _, tu := range TUs {
		content, err := os.ReadFile(tu)
		if err != nil {
			fmt.Printf("ERROR: Unable to open input file: %s\n", err)
			return -1
		}

		// Instantiate a parser for the Vm program
		parser := vm.NewParser(bytes.NewReader(content))
		// Parses the input file content and extract an AST (as a 'vm.Module') from it.
		name := strings.TrimSuffix(path.Base(tu), ".vm")
		program[name], err = parser.Parse()
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'parsing' pass: %s\n", err)
			return -1
		}
		u.Debugf("parsed module '%s' (%d operations)", name, len(program[name]))
	}

	// Instantiate a lowerer to convert the program from Vm to Asm
	lowerer := vm.NewLowerer(program, vm.WithBootstrap(bootstrap))
	// Lowers the vm.Program to an in-memory/IR representation of its Asm counterpart 'asm.Program'.
	asmProgram, err := lowerer.Lower()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'lowering' pass: %s\n", err)
		return -1
	}

	// Now, instantiates a code generator for the Asm (compiled) program
	codegen := asm.NewCodeGenerator(asmProgram)
	// Iterates over each instruction and spits out the relative textual representation.
	compiled, err := codegen.Generate()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'codegen' pass: %s\n", err)
		return -1
	}

	for _, comp := range compiled {
		line := fmt.Sprintf("%s\n", comp)
		output.Write([]byte(line))
	}

	return 0
}

func main() { os.Exit(VmTranslator.Run(os.Args, os.Stdout)) }
