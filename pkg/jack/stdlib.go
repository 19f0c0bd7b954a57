package jack

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
	"its-hmny.dev/nand2tetris/pkg/utils"
)

//go:embed stdlib.yaml
var stdlibSource []byte

// Shape of the YAML document embedded above, kept deliberately flat/textual (types as plain
// strings) since it only needs to describe function signatures, never a variable's value or
// a subroutine's body: the OS classes are implemented natively by the Hack VM/OS, not in Jack.
type stdlibDoc struct {
	Classes []stdlibClass `yaml:"classes"`
}

type stdlibClass struct {
	Name        string             `yaml:"name"`
	Subroutines []stdlibSubroutine `yaml:"subroutines"`
}

type stdlibSubroutine struct {
	Name      string      `yaml:"name"`
	Type      string      `yaml:"type"` // "constructor", "function" or "method"
	Return    string      `yaml:"return"`
	Arguments []stdlibArg `yaml:"arguments"`
}

type stdlibArg struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// StandardLibraryABI describes the signatures of the Jack OS classes (Math, String, Array,
// Output, Screen, Keyboard, Memory, Sys) so that the type checker and lowerer can resolve calls
// into them exactly as if they had been parsed from (nonexistent) Jack source for those classes.
var StandardLibraryABI = map[string]Class{}

func init() {
	var doc stdlibDoc
	if err := yaml.Unmarshal(stdlibSource, &doc); err != nil {
		panic(fmt.Errorf("error parsing embedded stdlib.yaml: %w", err))
	}

	for _, class := range doc.Classes {
		subroutines := utils.NewOrderedMap[string, Subroutine]()

		for _, routine := range class.Subroutines {
			args := make([]Variable, 0, len(routine.Arguments))
			for _, arg := range routine.Arguments {
				args = append(args, Variable{Name: arg.Name, VarType: Parameter, DataType: parseDataType(arg.Type)})
			}

			subroutines.Set(routine.Name, Subroutine{
				Name:      routine.Name,
				Type:      SubroutineType(routine.Type),
				Return:    parseDataType(routine.Return),
				Arguments: args,
			})
		}

		StandardLibraryABI[class.Name] = Class{
			Name:        class.Name,
			Fields:      utils.NewOrderedMap[string, Variable](),
			Subroutines: subroutines,
		}
	}
}

// Maps a Jack source-level type name (as it would appear after a 'var'/parameter/return
// declaration) to its in-memory 'DataType' counterpart. Anything that isn't one of the Jack
// primitives is assumed to be a class name, i.e. an Object with that class as its Subtype.
func parseDataType(name string) DataType {
	switch name {
	case "int":
		return DataType{Main: Int}
	case "boolean":
		return DataType{Main: Bool}
	case "char":
		return DataType{Main: Char}
	case "void":
		return DataType{Main: Void}
	case "String":
		return DataType{Main: String}
	default:
		return DataType{Main: Object, Subtype: name}
	}
}
