package vm

// ----------------------------------------------------------------------------
// General information

// This section contains some general information about the VM intermediate language.
//
// We declare a shared 'Operation' interface for every macro operation available for the
// language and we define some other useful top-level struct such as Program and Module.
// Is important to note that a VM program can be composed of multiple translation units
// that can be also referenced as file or modules or also classes.

// A VM Program is just a set of multiple modules/files, in the VM spec each Jack class is
// translated to its own .vm file (just like Java .class file) that can be handled as its
// own translation unit during the compilation or lowering phases. Modules are keyed by
// name (the class/file name, without extension) since both the compiler and the codegen
// phase need to address a specific module's output independently of the others.
type Program map[string]Module

// A VM Module is just a linear list of VM operations/instructions
type Module []Operation

// Used to put together all operation in the VM language (Memory, Arithmetic, ... ops).
type Operation interface{}

// ----------------------------------------------------------------------------
// Memory Op

// In memory representation of a Memory operation for the VM language.
//
// In the VM intermediate language there are only two possible memory operation on the stack.
// We could either push a new value taken from the specified segment location on the stack's
// top or take the stack's top and saves its value at the specified segment location.
type MemoryOp struct {
	Operation OperationType // The type of operation, either 'push' or 'pop'
	Segment   SegmentType   // The named memory segment to use (this, that, temp, ...)
	Offset    uint16        // The specific location/offset inside of the memory segment
}

type OperationType string // Enum to manage the operation allowed for a MemoryOp

const (
	Push OperationType = "push"
	Pop  OperationType = "pop"
)

type SegmentType string // Enum to manage the segment accessible for a MemoryOp

const (
	Temp     SegmentType = "temp"     // Real segment used to store intermediate computations
	Constant SegmentType = "constant" // Virtual segment used to access numeric constant

	Local    SegmentType = "local"    // Real segment used to store local function variables
	Static   SegmentType = "static"   // Real segment used to store shared/static variables
	Argument SegmentType = "argument" // Real segment used to store function's argument

	This    SegmentType = "this"    // Virtual segment used to point to a specific memory location
	That    SegmentType = "that"    // Virtual segment used to point to a specific memory location
	Pointer SegmentType = "pointer" // Real segment w/ 2 location used to set the 'this' and 'that' pointers
)

// ----------------------------------------------------------------------------
// Arithmetic Op

// In memory representation of a Arithmetic operation for the VM language.
//
// In the VM intermediate language there are just a handful of operation available.
// In particular each operation acts directly on the top of the stack, of course we have both unary
// and binary operation, the specific management of each op will be handled in the lowering phase.
type ArithmeticOp struct{ Operation ArithOpType }

type ArithOpType string // Enum to manage the operation allowed for an ArithmeticOp

const (
	Eq ArithOpType = "eq" // Comparison operations
	Gt ArithOpType = "gt"
	Lt ArithOpType = "lt"

	Add ArithOpType = "add" // Arithmetic operations
	Sub ArithOpType = "sub"
	Neg ArithOpType = "neg"

	Not ArithOpType = "not" // Bitwise operations
	And ArithOpType = "and"
	Or  ArithOpType = "or"
)

// ----------------------------------------------------------------------------
// Program Flow Op(s)

// In memory representation of a label declaration in the VM language.
//
// Labels are only meaningful within the function they're declared in: the lowering phase
// is responsible for qualifying them with the enclosing function's name so that two
// functions can freely reuse the same label text without colliding.
type LabelDecl struct {
	Name string // The symbol chosen by the caller for this program location
}

// In memory representation of a (conditional or not) jump in the VM language.
type GotoOp struct {
	Jump  JumpType // Whether the jump is unconditional or gated on the stack's top value
	Label string   // The target label, must be declared somewhere in the same function
}

type JumpType string // Enum to manage the two jump flavors available for a GotoOp

const (
	Unconditional JumpType = "goto"    // Always taken
	Conditional   JumpType = "if-goto" // Taken only if the popped stack's top is not false (0)
)

// ----------------------------------------------------------------------------
// Function Calling Op(s)

// In memory representation of a function declaration in the VM language.
//
// Declares a new function entry point along with how many local variables it needs,
// the lowering phase is responsible for zero-initializing all of them before the function
// body itself ever gets to run (this is assumed by 'jack.Lowerer' when compiling Jack code).
type FuncDecl struct {
	Name   string // Fully qualified subroutine name (e.g. "Math.sqrt", "String.new")
	NLocal uint8  // The number of local variables that should be zero initialized on entry
}

// In memory representation of a function call in the VM language.
//
// The callee is looked up by name (dynamic dispatch doesn't exist at this level, the
// Jack lowering phase has already resolved it to a concrete, fully qualified function).
type FuncCallOp struct {
	Name  string // Fully qualified subroutine name being invoked
	NArgs uint8  // The number of arguments already pushed onto the stack by the caller
}

// In memory representation of a function return in the VM language.
//
// Always pops exactly one value (the return value) the caller is expected to have
// already pushed onto the stack before issuing this operation.
type ReturnOp struct{}
