package jack

import (
	"fmt"
	"strings"
)

// The TypeChecker walks a 'jack.Program' and verifies that every expression, statement and
// subroutine call is consistent with the declared types, without producing any output: it
// mirrors the traversal done by the Lowerer but raises an error instead of emitting vm.Operation(s)
// whenever a type mismatch, an undeclared variable or an unresolvable subroutine is found.
type TypeChecker struct {
	program Program
	scopes  ScopeTable // Keeps track of the scopes and declared variables inside each one
}

func NewTypeChecker(program Program) TypeChecker {
	return TypeChecker{program: program, scopes: ScopeTable{}}
}

func (tc *TypeChecker) Check() (bool, error) {
	if tc.program == nil {
		return false, fmt.Errorf("the given 'program' is empty or nil")
	}

	for name, class := range tc.program {
		if _, err := tc.HandleClass(class); err != nil {
			return false, fmt.Errorf("error handling type checking of class '%s': %w", name, err)
		}
	}

	return true, nil
}

// Specialized function to type-check a 'jack.Class' and nested fields.
func (tc *TypeChecker) HandleClass(class Class) (bool, error) {
	tc.scopes.PushClassScope(class.Name) // Keep track of the current scope being processed
	defer tc.scopes.PopClassScope()      // Reset the function name after processing

	for _, field := range class.Fields.Entries() {
		if _, err := tc.HandleVarStmt(VarStmt{Vars: []Variable{field}}); err != nil {
			return false, fmt.Errorf("error handling field '%s' in class '%s': %w", field.Name, class.Name, err)
		}
	}

	for _, subroutine := range class.Subroutines.Entries() {
		if _, err := tc.HandleSubroutine(subroutine); err != nil {
			return false, fmt.Errorf("error handling subroutine '%s' in class '%s': %w", subroutine.Name, class.Name, err)
		}
	}

	return true, nil
}

// Specialized function to type-check a 'jack.Subroutine' and nested fields.
func (tc *TypeChecker) HandleSubroutine(subroutine Subroutine) (bool, error) {
	tc.scopes.PushSubroutineScope(subroutine.Name) // Keep track of the current subroutine function being processed
	defer tc.scopes.PopSubroutineScope()           // Reset the function name after processing

	if subroutine.Type == Method {
		tc.scopes.RegisterVariable(Variable{Name: "__obj", VarType: Parameter, DataType: DataType{Main: Object}})
	}

	// We add to the current scope also all of the arguments of the subroutine, in declaration order
	// (mirroring lowering.go, since the argument position determines its ARG segment offset there).
	for _, arg := range subroutine.Arguments {
		tc.scopes.RegisterVariable(arg)
	}

	for _, stmt := range subroutine.Statements {
		if _, err := tc.HandleStatement(stmt); err != nil {
			return false, fmt.Errorf("error handling nested statement %T: %w", stmt, err)
		}
	}

	return true, nil
}

// Generalized function to type-check multiple statements types.
func (tc *TypeChecker) HandleStatement(stmt Statement) (bool, error) {
	switch tStmt := stmt.(type) {
	case DoStmt:
		return tc.HandleDoStmt(tStmt)
	case VarStmt:
		return tc.HandleVarStmt(tStmt)
	case LetStmt:
		return tc.HandleLetStmt(tStmt)
	case IfStmt:
		return tc.HandleIfStmt(tStmt)
	case WhileStmt:
		return tc.HandleWhileStmt(tStmt)
	case ReturnStmt:
		return tc.HandleReturnStmt(tStmt)
	default:
		return false, fmt.Errorf("unrecognized statement: %T", stmt)
	}
}

// Specialized function to type-check a 'jack.DoStmt'.
func (tc *TypeChecker) HandleDoStmt(statement DoStmt) (bool, error) {
	if _, err := tc.HandleExpression(statement.FuncCall); err != nil {
		return false, fmt.Errorf("error handling nested function call expression: %w", err)
	}
	return true, nil
}

// Specialized function to type-check a 'jack.VarStmt'.
func (tc *TypeChecker) HandleVarStmt(statement VarStmt) (bool, error) {
	for _, variable := range statement.Vars {
		tc.scopes.RegisterVariable(variable)
	}
	return true, nil
}

// Specialized function to type-check a 'jack.LetStmt'.
func (tc *TypeChecker) HandleLetStmt(statement LetStmt) (bool, error) {
	rhsType, err := tc.HandleExpression(statement.Rhs)
	if err != nil {
		return false, fmt.Errorf("error handling RHS expression: %w", err)
	}

	var lhsType DataType
	switch lhs := statement.Lhs.(type) {
	case VarExpr:
		_, variable, err := tc.scopes.ResolveVariable(lhs.Var)
		if err != nil {
			return false, fmt.Errorf("error resolving variable '%s': %w", lhs.Var, err)
		}
		lhsType = variable.DataType
	case ArrayExpr:
		_, variable, err := tc.scopes.ResolveVariable(lhs.Var)
		if err != nil {
			return false, fmt.Errorf("error resolving array variable '%s': %w", lhs.Var, err)
		}
		if _, err := tc.HandleExpression(lhs.Index); err != nil {
			return false, fmt.Errorf("error handling array index expression: %w", err)
		}
		// Array elements are untyped at the VM level (a single word), accept any RHS here.
		lhsType = DataType{Main: variable.DataType.Main}
	default:
		return false, fmt.Errorf("LHS expression must be either a 'VarExpr' or an 'ArrayExpr', got: %T", statement.Lhs)
	}

	if !tc.compatible(lhsType, rhsType) {
		return false, fmt.Errorf("cannot assign value of type '%s' to variable of type '%s'", rhsType.Main, lhsType.Main)
	}

	return true, nil
}

// Specialized function to type-check a 'jack.WhileStmt'.
func (tc *TypeChecker) HandleWhileStmt(statement WhileStmt) (bool, error) {
	condType, err := tc.HandleExpression(statement.Condition)
	if err != nil {
		return false, fmt.Errorf("error handling while condition expression: %w", err)
	}
	if condType.Main != Bool {
		return false, fmt.Errorf("while condition must be of type 'bool', got '%s'", condType.Main)
	}

	for _, stmt := range statement.Block {
		if _, err := tc.HandleStatement(stmt); err != nil {
			return false, fmt.Errorf("error handling statement in while block: %w", err)
		}
	}

	return true, nil
}

// Specialized function to type-check a 'jack.IfStmt'.
func (tc *TypeChecker) HandleIfStmt(statement IfStmt) (bool, error) {
	condType, err := tc.HandleExpression(statement.Condition)
	if err != nil {
		return false, fmt.Errorf("error handling if condition expression: %w", err)
	}
	if condType.Main != Bool {
		return false, fmt.Errorf("if condition must be of type 'bool', got '%s'", condType.Main)
	}

	for _, stmt := range statement.ThenBlock {
		if _, err := tc.HandleStatement(stmt); err != nil {
			return false, fmt.Errorf("error handling statement in 'then' block: %w", err)
		}
	}

	for _, stmt := range statement.ElseBlock {
		if _, err := tc.HandleStatement(stmt); err != nil {
			return false, fmt.Errorf("error handling statement in 'else' block: %w", err)
		}
	}

	return true, nil
}

// Specialized function to type-check a 'jack.ReturnStmt'.
func (tc *TypeChecker) HandleReturnStmt(statement ReturnStmt) (bool, error) {
	if statement.Expr == nil {
		return true, nil
	}
	if _, err := tc.HandleExpression(statement.Expr); err != nil {
		return false, fmt.Errorf("error handling return expression: %w", err)
	}
	return true, nil
}

// Generalized function to type-check multiple expression types, returning the DataType it produces.
func (tc *TypeChecker) HandleExpression(expr Expression) (DataType, error) {
	switch tExpr := expr.(type) {
	case VarExpr:
		return tc.HandleVarExpr(tExpr)
	case LiteralExpr:
		return tExpr.Type, nil
	case ArrayExpr:
		return tc.HandleArrayExpr(tExpr)
	case UnaryExpr:
		return tc.HandleUnaryExpr(tExpr)
	case BinaryExpr:
		return tc.HandleBinaryExpr(tExpr)
	case FuncCallExpr:
		return tc.HandleFuncCallExpr(tExpr)
	default:
		return DataType{}, fmt.Errorf("unrecognized expression: %T", expr)
	}
}

// Specialized function to type-check a 'jack.VarExpr'.
func (tc *TypeChecker) HandleVarExpr(expression VarExpr) (DataType, error) {
	if expression.Var == "this" {
		return DataType{Main: Object}, nil
	}

	_, variable, err := tc.scopes.ResolveVariable(expression.Var)
	if err != nil {
		return DataType{}, fmt.Errorf("error resolving variable '%s': %w", expression.Var, err)
	}

	return variable.DataType, nil
}

// Specialized function to type-check a 'jack.ArrayExpr', always evaluates to 'int' since the
// Jack Array class stores each cell as an untyped word (same convention used by the Lowerer).
func (tc *TypeChecker) HandleArrayExpr(expression ArrayExpr) (DataType, error) {
	if _, _, err := tc.scopes.ResolveVariable(expression.Var); err != nil {
		return DataType{}, fmt.Errorf("error resolving array variable '%s': %w", expression.Var, err)
	}

	indexType, err := tc.HandleExpression(expression.Index)
	if err != nil {
		return DataType{}, fmt.Errorf("error handling array index expression: %w", err)
	}
	if indexType.Main != Int {
		return DataType{}, fmt.Errorf("array index must be of type 'int', got '%s'", indexType.Main)
	}

	return DataType{Main: Int}, nil
}

// Specialized function to type-check a 'jack.UnaryExpr'.
func (tc *TypeChecker) HandleUnaryExpr(expression UnaryExpr) (DataType, error) {
	rhsType, err := tc.HandleExpression(expression.Rhs)
	if err != nil {
		return DataType{}, fmt.Errorf("error handling nested expression: %w", err)
	}

	switch expression.Type {
	case Minus:
		if rhsType.Main != Int {
			return DataType{}, fmt.Errorf("unary '-' requires an 'int' operand, got '%s'", rhsType.Main)
		}
		return DataType{Main: Int}, nil
	case BoolNot:
		if rhsType.Main != Bool {
			return DataType{}, fmt.Errorf("unary '~' requires a 'bool' operand, got '%s'", rhsType.Main)
		}
		return DataType{Main: Bool}, nil
	default:
		return DataType{}, fmt.Errorf("unrecognized unary expression type: %s", expression.Type)
	}
}

// Specialized function to type-check a 'jack.BinaryExpr'.
func (tc *TypeChecker) HandleBinaryExpr(expression BinaryExpr) (DataType, error) {
	lhsType, err := tc.HandleExpression(expression.Lhs)
	if err != nil {
		return DataType{}, fmt.Errorf("error handling nested LHS expression: %w", err)
	}

	rhsType, err := tc.HandleExpression(expression.Rhs)
	if err != nil {
		return DataType{}, fmt.Errorf("error handling nested RHS expression: %w", err)
	}

	switch expression.Type {
	case Plus, Minus, Divide, Multiply:
		if lhsType.Main != Int || rhsType.Main != Int {
			return DataType{}, fmt.Errorf("arithmetic operator '%s' requires 'int' operands, got '%s' and '%s'", expression.Type, lhsType.Main, rhsType.Main)
		}
		return DataType{Main: Int}, nil
	case BoolOr, BoolAnd:
		if lhsType.Main != Bool || rhsType.Main != Bool {
			return DataType{}, fmt.Errorf("boolean operator '%s' requires 'bool' operands, got '%s' and '%s'", expression.Type, lhsType.Main, rhsType.Main)
		}
		return DataType{Main: Bool}, nil
	case Equal, LessThan, GreatThan:
		if lhsType.Main != rhsType.Main {
			return DataType{}, fmt.Errorf("comparison operator '%s' requires operands of the same type, got '%s' and '%s'", expression.Type, lhsType.Main, rhsType.Main)
		}
		return DataType{Main: Bool}, nil
	default:
		return DataType{}, fmt.Errorf("unrecognized binary expression type: %s", expression.Type)
	}
}

// Specialized function to type-check a 'jack.FuncCallExpr', resolving the callee the same way
// the Lowerer does (instance-internal call, call through a local variable, or call through a
// class name) and returning the declared return type of the resolved subroutine.
func (tc *TypeChecker) HandleFuncCallExpr(expression FuncCallExpr) (DataType, error) {
	for _, arg := range expression.Arguments {
		if _, err := tc.HandleExpression(arg); err != nil {
			return DataType{}, fmt.Errorf("error handling argument expression: %w", err)
		}
	}

	if !expression.IsExtCall {
		className := strings.Split(tc.scopes.GetScope(), ".")[0]

		class, exists := tc.program[className]
		if !exists {
			return DataType{}, fmt.Errorf("class definition not found for '%s'", className)
		}
		routine, exists := class.Subroutines.Get(expression.FuncName)
		if !exists {
			return DataType{}, fmt.Errorf("subroutine '%s' not found in class '%s'", expression.FuncName, className)
		}

		return routine.Return, nil
	}

	if _, variable, err := tc.scopes.ResolveVariable(expression.Var); err == nil {
		if variable.DataType.Main != Object {
			return DataType{}, fmt.Errorf("variable '%s' is not an object", expression.Var)
		}

		class, exists := tc.program[variable.DataType.Subtype]
		if !exists {
			return DataType{}, fmt.Errorf("class definition not found for '%s'", variable.DataType.Subtype)
		}
		routine, exists := class.Subroutines.Get(expression.FuncName)
		if !exists {
			return DataType{}, fmt.Errorf("subroutine '%s' not found in class '%s'", expression.FuncName, class.Name)
		}

		return routine.Return, nil
	}

	class, exists := tc.program[expression.Var]
	if !exists {
		return DataType{}, fmt.Errorf("unrecognized function call expression: %s", expression.FuncName)
	}
	routine, exists := class.Subroutines.Get(expression.FuncName)
	if !exists {
		return DataType{}, fmt.Errorf("subroutine '%s' not found in class '%s'", expression.FuncName, class.Name)
	}

	return routine.Return, nil
}

// Reports whether a value of type 'from' can be assigned to a variable of type 'to'. Object
// typed variables of any subtype can hold a 'null' literal, mirroring Jack's own type system.
func (tc *TypeChecker) compatible(to, from DataType) bool {
	if to.Main == from.Main && to.Subtype == from.Subtype {
		return true
	}
	return to.Main == Object && from.Main == Null
}
