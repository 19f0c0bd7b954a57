package vm

import (
	"fmt"

	"its-hmny.dev/nand2tetris/pkg/asm"
)

// ----------------------------------------------------------------------------
// Vm Lowerer

// The Lowerer takes a 'vm.Program' (already parsed and type-checked at this point) and
// produces its 'asm.Program' counterpart.
//
// Unlike the lowering phases above and below it this one needs to keep some state around
// while it processes a module: the enclosing function name (used to qualify labels so that
// two functions can reuse the same label text) and a couple of monotonic counters used to
// keep every generated label globally unique (comparisons need a pair of them, calls need one).
type Lowerer struct {
	program Program

	bootstrap bool // Whether to emit the SP init + call to Sys.init prelude

	labelSeq  uint // Unique id generator for eq/gt/lt comparison labels
	callSeq   uint // Unique id generator for call-site return labels
	curFnName string
	curModule string // The enclosing module/class, used to qualify the 'static' segment
}

// LoweringOption customizes the behavior of a 'vm.Lowerer', see 'WithBootstrap'.
type LoweringOption func(*Lowerer)

// Enables (or disables) the bootstrap prelude: stack pointer initialization followed by
// a genuine 'call Sys.init 0' going through the very same calling convention used for any
// other Jack function call. Single file/unit translations (e.g. unit tests) usually want
// this disabled since they don't define a 'Sys.init' entrypoint.
func WithBootstrap(enabled bool) LoweringOption {
	return func(l *Lowerer) { l.bootstrap = enabled }
}

// Initializes and returns to the caller a brand new 'Lowerer' struct.
// Requires the argument Program to be not nil nor empty.
func NewLowerer(p Program, opts ...LoweringOption) Lowerer {
	l := Lowerer{program: p}
	for _, opt := range opts {
		opt(&l)
	}
	return l
}

// Triggers the lowering process, one module at a time. Modules are visited in an arbitrary
// (map iteration) order: this is fine since each module only emits its own labeled functions
// and never relies on any other module's code being laid out before or after it in ROM.
func (l *Lowerer) Lower() (asm.Program, error) {
	if l.program == nil || len(l.program) == 0 {
		return nil, fmt.Errorf("the given 'program' is empty")
	}

	compiled := asm.Program{}
	if l.bootstrap {
		prelude, err := l.bootstrapPrelude()
		if err != nil {
			return nil, fmt.Errorf("error emitting bootstrap prelude: %w", err)
		}
		compiled = append(compiled, prelude...)
	}

	for name, module := range l.program {
		ops, err := l.HandleModule(name, module)
		if err != nil {
			return nil, fmt.Errorf("error lowering module '%s': %w", name, err)
		}
		compiled = append(compiled, ops...)
	}

	// Every translated program ends in an infinite loop: the Hack CPU has no concept of
	// "halt" and would otherwise keep fetching whatever garbage follows in ROM.
	compiled = append(compiled,
		asm.LabelDecl{Name: "END"},
		asm.AInstruction{Location: "END"},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
	)

	return compiled, nil
}

// Emits the stack pointer initialization followed by a 'call Sys.init 0' lowered through
// the exact same calling convention as any other call, so there's nothing special-cased
// about the entrypoint from the callee's perspective.
func (l *Lowerer) bootstrapPrelude() ([]asm.Instruction, error) {
	init := []asm.Instruction{
		asm.AInstruction{Location: "256"},
		asm.CInstruction{Dest: "D", Comp: "A"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}

	l.curFnName = "Bootstrap"
	call, err := l.HandleFuncCallOp(FuncCallOp{Name: "Sys.init", NArgs: 0})
	if err != nil {
		return nil, fmt.Errorf("error lowering bootstrap call to 'Sys.init': %w", err)
	}

	return append(init, call...), nil
}

// Specialized function to convert a 'vm.Module' (a list of operations) to a list of 'asm.Instruction'.
func (l *Lowerer) HandleModule(name string, module Module) ([]asm.Instruction, error) {
	l.curFnName = name // Fallback scope name until the first 'function' declaration is seen
	l.curModule = name // 'static' segment is scoped to the enclosing module for its whole lifetime

	compiled := []asm.Instruction{}
	for _, op := range module {
		ops, err := l.HandleOperation(op)
		if err != nil {
			return nil, fmt.Errorf("error lowering operation %T: %w", op, err)
		}
		compiled = append(compiled, ops...)
	}

	return compiled, nil
}

// Generalized function to lower any 'vm.Operation' to its 'asm.Instruction' counterpart(s).
func (l *Lowerer) HandleOperation(op Operation) ([]asm.Instruction, error) {
	switch tOp := op.(type) {
	case MemoryOp:
		return l.HandleMemoryOp(tOp)
	case ArithmeticOp:
		return l.HandleArithmeticOp(tOp)
	case LabelDecl:
		return l.HandleLabelDecl(tOp)
	case GotoOp:
		return l.HandleGotoOp(tOp)
	case FuncDecl:
		return l.HandleFuncDecl(tOp)
	case FuncCallOp:
		return l.HandleFuncCallOp(tOp)
	case ReturnOp:
		return l.HandleReturnOp(tOp)
	default:
		return nil, fmt.Errorf("unrecognized operation '%T'", op)
	}
}

// ----------------------------------------------------------------------------
// Shared helpers

// Stores the value currently in 'D' onto the top of the stack and advances the Stack Pointer.
func pushD() []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "M+1"},
	}
}

// Rewinds the Stack Pointer and loads the popped value into 'D'. Leaves 'A' pointing
// at the (now former) top of stack, useful to fuse this with the caller's own logic.
func popToD() []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
	}
}

// segmentPointer maps a pointer-based (indirect) segment to the built-in symbol holding its base address.
var segmentPointer = map[SegmentType]string{
	Local:    "LCL",
	Argument: "ARG",
	This:     "THIS",
	That:     "THAT",
}

// ----------------------------------------------------------------------------
// Memory Op

// Specialized function to convert a 'vm.MemoryOp' to a list of 'asm.Instruction'.
func (l *Lowerer) HandleMemoryOp(op MemoryOp) ([]asm.Instruction, error) {
	switch op.Operation {
	case Push:
		return l.handlePush(op.Segment, op.Offset)
	case Pop:
		return l.handlePop(op.Segment, op.Offset)
	default:
		return nil, fmt.Errorf("unrecognized memory operation '%s'", op.Operation)
	}
}

func (l *Lowerer) handlePush(segment SegmentType, offset uint16) ([]asm.Instruction, error) {
	switch segment {
	case Constant:
		return append([]asm.Instruction{
			asm.AInstruction{Location: fmt.Sprint(offset)},
			asm.CInstruction{Dest: "D", Comp: "A"},
		}, pushD()...), nil

	case Local, Argument, This, That:
		resolve := []asm.Instruction{
			asm.AInstruction{Location: segmentPointer[segment]},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.AInstruction{Location: fmt.Sprint(offset)},
			asm.CInstruction{Dest: "A", Comp: "D+A"},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}
		return append(resolve, pushD()...), nil

	case Static:
		return append([]asm.Instruction{
			asm.AInstruction{Location: fmt.Sprintf("%s.%d", l.curModule, offset)},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}, pushD()...), nil

	case Temp:
		if offset > 7 {
			return nil, fmt.Errorf("invalid 'temp' offset, got %d", offset)
		}
		return append([]asm.Instruction{
			asm.AInstruction{Location: fmt.Sprint(5 + offset)},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}, pushD()...), nil

	case Pointer:
		if offset > 1 {
			return nil, fmt.Errorf("invalid 'pointer' offset, got %d", offset)
		}
		target := map[uint16]string{0: "THIS", 1: "THAT"}[offset]
		return append([]asm.Instruction{
			asm.AInstruction{Location: target},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}, pushD()...), nil

	default:
		return nil, fmt.Errorf("unrecognized segment '%s'", segment)
	}
}

func (l *Lowerer) handlePop(segment SegmentType, offset uint16) ([]asm.Instruction, error) {
	switch segment {
	case Local, Argument, This, That:
		// Computes the target address ahead of time and stashes it in R13 (general purpose
		// scratch word), then pops the stack's top into 'D' and writes it to *R13.
		return []asm.Instruction{
			asm.AInstruction{Location: segmentPointer[segment]},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.AInstruction{Location: fmt.Sprint(offset)},
			asm.CInstruction{Dest: "D", Comp: "D+A"},
			asm.AInstruction{Location: "R13"},
			asm.CInstruction{Dest: "M", Comp: "D"},
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "AM", Comp: "M-1"},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.AInstruction{Location: "R13"},
			asm.CInstruction{Dest: "A", Comp: "M"},
			asm.CInstruction{Dest: "M", Comp: "D"},
		}, nil

	case Static:
		ops := popToD()
		return append(ops,
			asm.AInstruction{Location: fmt.Sprintf("%s.%d", l.curModule, offset)},
			asm.CInstruction{Dest: "M", Comp: "D"},
		), nil

	case Temp:
		if offset > 7 {
			return nil, fmt.Errorf("invalid 'temp' offset, got %d", offset)
		}
		ops := popToD()
		return append(ops,
			asm.AInstruction{Location: fmt.Sprint(5 + offset)},
			asm.CInstruction{Dest: "M", Comp: "D"},
		), nil

	case Pointer:
		if offset > 1 {
			return nil, fmt.Errorf("invalid 'pointer' offset, got %d", offset)
		}
		target := map[uint16]string{0: "THIS", 1: "THAT"}[offset]
		ops := popToD()
		return append(ops,
			asm.AInstruction{Location: target},
			asm.CInstruction{Dest: "M", Comp: "D"},
		), nil

	default:
		return nil, fmt.Errorf("unrecognized segment '%s'", segment)
	}
}

// ----------------------------------------------------------------------------
// Arithmetic Op

// Specialized function to convert a 'vm.ArithmeticOp' to a list of 'asm.Instruction'.
func (l *Lowerer) HandleArithmeticOp(op ArithmeticOp) ([]asm.Instruction, error) {
	switch op.Operation {
	case Neg:
		return l.unary("-M"), nil
	case Not:
		return l.unary("!M"), nil
	case Add:
		return l.binary("D+M"), nil
	case Sub:
		return l.binary("M-D"), nil
	case And:
		return l.binary("D&M"), nil
	case Or:
		return l.binary("D|M"), nil
	case Eq:
		return l.compare("JEQ"), nil
	case Gt:
		return l.compare("JGT"), nil
	case Lt:
		return l.compare("JLT"), nil
	default:
		return nil, fmt.Errorf("unrecognized arithmetic operation '%s'", op.Operation)
	}
}

// Unary operations (neg, not) act in place on the stack's top, the Stack Pointer never moves.
func (l *Lowerer) unary(comp string) []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "M", Comp: comp},
	}
}

// Binary operations (add, sub, and, or) pop the top two values and push back a single result.
func (l *Lowerer) binary(comp string) []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.CInstruction{Dest: "A", Comp: "A-1"},
		asm.CInstruction{Dest: "M", Comp: comp},
	}
}

// Comparisons (eq, gt, lt) reduce to a subtraction followed by a conditional jump to one
// of two uniquely labeled sites, one pushing 'true' (-1) and the other 'false' (0). The
// label pair is disambiguated per call site via the Lowerer's own monotonic counter so
// that two 'eq' operations in the same function never clash.
func (l *Lowerer) compare(jump string) []asm.Instruction {
	id := l.labelSeq
	l.labelSeq++

	trueLabel := fmt.Sprintf("%s$COMPARE_TRUE_%d", l.curFnName, id)
	endLabel := fmt.Sprintf("%s$COMPARE_END_%d", l.curFnName, id)

	return []asm.Instruction{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.CInstruction{Dest: "A", Comp: "A-1"},
		asm.CInstruction{Dest: "D", Comp: "M-D"},
		asm.AInstruction{Location: trueLabel},
		asm.CInstruction{Comp: "D", Jump: jump},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "M", Comp: "0"},
		asm.AInstruction{Location: endLabel},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
		asm.LabelDecl{Name: trueLabel},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "M", Comp: "-1"},
		asm.LabelDecl{Name: endLabel},
	}
}

// ----------------------------------------------------------------------------
// Program Flow Op(s)

// Specialized function to convert a 'vm.LabelDecl' to a list of 'asm.Instruction'.
//
// Labels are qualified with the enclosing function's name so that two functions can
// freely reuse the same label text (e.g. "WHILE_START_0") without colliding in the
// flattened, single address space 'asm.Program'.
func (l *Lowerer) HandleLabelDecl(op LabelDecl) ([]asm.Instruction, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("label declaration is missing a name")
	}
	return []asm.Instruction{asm.LabelDecl{Name: fmt.Sprintf("%s$%s", l.curFnName, op.Name)}}, nil
}

// Specialized function to convert a 'vm.GotoOp' to a list of 'asm.Instruction'.
func (l *Lowerer) HandleGotoOp(op GotoOp) ([]asm.Instruction, error) {
	if op.Label == "" {
		return nil, fmt.Errorf("goto operation is missing a target label")
	}

	qualified := fmt.Sprintf("%s$%s", l.curFnName, op.Label)

	switch op.Jump {
	case Unconditional:
		return []asm.Instruction{
			asm.AInstruction{Location: qualified},
			asm.CInstruction{Comp: "0", Jump: "JMP"},
		}, nil

	case Conditional:
		ops := popToD()
		return append(ops,
			asm.AInstruction{Location: qualified},
			asm.CInstruction{Comp: "D", Jump: "JNE"},
		), nil

	default:
		return nil, fmt.Errorf("unrecognized jump type '%s'", op.Jump)
	}
}

// ----------------------------------------------------------------------------
// Function Calling Op(s)

// Specialized function to convert a 'vm.FuncDecl' to a list of 'asm.Instruction'.
//
// Every local variable slot is zero initialized inline (the count is known at lowering
// time, unrolling it avoids any extra runtime bookkeeping/labels for a loop that would
// only ever run once per call).
func (l *Lowerer) HandleFuncDecl(op FuncDecl) ([]asm.Instruction, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("function declaration is missing a name")
	}

	l.curFnName = op.Name
	compiled := []asm.Instruction{asm.LabelDecl{Name: op.Name}}

	for i := uint8(0); i < op.NLocal; i++ {
		compiled = append(compiled,
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "A", Comp: "M"},
			asm.CInstruction{Dest: "M", Comp: "0"},
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "M", Comp: "M+1"},
		)
	}

	return compiled, nil
}

// Specialized function to convert a 'vm.FuncCallOp' to a list of 'asm.Instruction'.
//
// Implements the standard nand2tetris calling convention: push a return address along
// with the caller's LCL/ARG/THIS/THAT, reposition ARG and LCL for the callee, jump to
// it, and finally declare the label the callee will return to.
func (l *Lowerer) HandleFuncCallOp(op FuncCallOp) ([]asm.Instruction, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("function call is missing a callee name")
	}

	id := l.callSeq
	l.callSeq++
	retLabel := fmt.Sprintf("%s$RET_%d", l.curFnName, id)

	compiled := []asm.Instruction{
		asm.AInstruction{Location: retLabel},
		asm.CInstruction{Dest: "D", Comp: "A"},
	}
	compiled = append(compiled, pushD()...)

	for _, seg := range []string{"LCL", "ARG", "THIS", "THAT"} {
		compiled = append(compiled,
			asm.AInstruction{Location: seg},
			asm.CInstruction{Dest: "D", Comp: "M"},
		)
		compiled = append(compiled, pushD()...)
	}

	// ARG = SP - NArgs - 5 (5 being the 4 saved segments pointers plus the return address)
	compiled = append(compiled,
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: fmt.Sprint(uint16(op.NArgs) + 5)},
		asm.CInstruction{Dest: "D", Comp: "D-A"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	)

	// LCL = SP
	compiled = append(compiled,
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	)

	compiled = append(compiled,
		asm.AInstruction{Location: op.Name},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
		asm.LabelDecl{Name: retLabel},
	)

	return compiled, nil
}

// Specialized function to convert a 'vm.ReturnOp' to a list of 'asm.Instruction'.
//
// Uses R13/R14 as scratch words to hold the caller's frame base and return address
// respectively, since both THIS and THAT get overwritten while restoring the caller's
// saved segments (so they can't be relied upon to still hold useful values midway through).
func (l *Lowerer) HandleReturnOp(ReturnOp) ([]asm.Instruction, error) {
	return []asm.Instruction{
		// R13 (FRAME) = LCL
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "M", Comp: "D"},

		// R14 (RET) = *(FRAME - 5)
		asm.AInstruction{Location: "5"},
		asm.CInstruction{Dest: "A", Comp: "D-A"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "R14"},
		asm.CInstruction{Dest: "M", Comp: "D"},

		// *ARG = pop()
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "D"},

		// SP = ARG + 1
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "D", Comp: "M+1"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "D"},

		// THAT = *(FRAME - 1)
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "THAT"},
		asm.CInstruction{Dest: "M", Comp: "D"},

		// THIS = *(FRAME - 2)
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "THIS"},
		asm.CInstruction{Dest: "M", Comp: "D"},

		// ARG = *(FRAME - 3)
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "M", Comp: "D"},

		// LCL = *(FRAME - 4)
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Dest: "M", Comp: "D"},

		// goto RET
		asm.AInstruction{Location: "R14"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
	}, nil
}
