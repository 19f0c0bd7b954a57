package jack

import (
	"fmt"

	"its-hmny.dev/nand2tetris/pkg/utils"
)

// ----------------------------------------------------------------------------
// AST construction

// The parser above only ever builds a generic parse Tree (see tree.go/grammar.go);
// everything below walks that Tree once, bottom-up, to produce the typed Class that
// 'lowering.go' and 'typechecking.go' already know how to consume. Every build*
// function below corresponds 1:1 to a grammar production in parsing.go and only
// needs to know the fixed shape that production leaves behind.

func buildClass(t *Tree, h NodeHandle) (Class, error) {
	children := t.Children(h)
	if len(children) < 3 {
		return Class{}, fmt.Errorf("malformed class declaration")
	}

	class := Class{
		Name:        t.LeafText(children[1]),
		Fields:      utils.NewOrderedMap[string, Variable](),
		Subroutines: utils.NewOrderedMap[string, Subroutine](),
	}

	for _, c := range children[3 : len(children)-1] {
		switch t.Value(c) {
		case "classVarDec":
			vars, err := buildClassVarDec(t, c)
			if err != nil {
				return Class{}, err
			}
			for _, v := range vars {
				class.Fields.Set(v.Name, v)
			}
		case "subroutineDec":
			sub, err := buildSubroutine(t, c)
			if err != nil {
				return Class{}, err
			}
			class.Subroutines.Set(sub.Name, sub)
		}
	}

	return class, nil
}

func buildClassVarDec(t *Tree, h NodeHandle) ([]Variable, error) {
	children := t.Children(h)
	kind := Field
	if t.LeafText(children[0]) == "static" {
		kind = Static
	}

	dataType, idx, err := buildType(t, children, 1)
	if err != nil {
		return nil, err
	}

	names := buildVarNameList(t, children[idx:])
	vars := make([]Variable, 0, len(names))
	for _, name := range names {
		vars = append(vars, Variable{Name: name, VarType: kind, DataType: dataType})
	}
	return vars, nil
}

func buildSubroutine(t *Tree, h NodeHandle) (Subroutine, error) {
	children := t.Children(h)
	var kind SubroutineType
	switch t.LeafText(children[0]) {
	case "constructor":
		kind = Constructor
	case "function":
		kind = Function
	case "method":
		kind = Method
	default:
		return Subroutine{}, fmt.Errorf("unrecognized subroutine kind %q", t.LeafText(children[0]))
	}

	ret, idx, err := buildType(t, children, 1)
	if err != nil {
		return Subroutine{}, err
	}
	name := t.LeafText(children[idx])
	idx++ // skip subroutineName

	if idx+3 >= len(children) {
		return Subroutine{}, fmt.Errorf("malformed subroutine declaration for %q", name)
	}
	args, err := buildParameterList(t, children[idx+1])
	if err != nil {
		return Subroutine{}, err
	}
	statements, err := buildSubroutineBody(t, children[idx+3])
	if err != nil {
		return Subroutine{}, err
	}

	return Subroutine{Name: name, Type: kind, Return: ret, Arguments: args, Statements: statements}, nil
}

func buildParameterList(t *Tree, h NodeHandle) ([]Variable, error) {
	children := t.Children(h)
	args := []Variable{}
	for i := 0; i < len(children); {
		if t.Value(children[i]) == "symbol" {
			i++ // the ',' separator
			continue
		}
		dataType, err := nodeToDataType(t, children[i])
		if err != nil {
			return nil, err
		}
		args = append(args, Variable{Name: t.LeafText(children[i+1]), VarType: Parameter, DataType: dataType})
		i += 2
	}
	return args, nil
}

func buildSubroutineBody(t *Tree, h NodeHandle) ([]Statement, error) {
	statements := []Statement{}
	for _, c := range t.Children(h) {
		switch t.Value(c) {
		case "varDec":
			stmt, err := buildVarDec(t, c)
			if err != nil {
				return nil, err
			}
			statements = append(statements, stmt)
		case "statements":
			body, err := buildStatements(t, c)
			if err != nil {
				return nil, err
			}
			statements = append(statements, body...)
		}
	}
	return statements, nil
}

func buildVarDec(t *Tree, h NodeHandle) (Statement, error) {
	children := t.Children(h)
	dataType, idx, err := buildType(t, children, 1)
	if err != nil {
		return nil, err
	}
	names := buildVarNameList(t, children[idx:])
	vars := make([]Variable, 0, len(names))
	for _, name := range names {
		vars = append(vars, Variable{Name: name, VarType: Local, DataType: dataType})
	}
	return VarStmt{Vars: vars}, nil
}

func buildStatements(t *Tree, h NodeHandle) ([]Statement, error) {
	statements := []Statement{}
	for _, c := range t.Children(h) {
		var stmt Statement
		var err error
		switch t.Value(c) {
		case "letStatement":
			stmt, err = buildLet(t, c)
		case "ifStatement":
			stmt, err = buildIf(t, c)
		case "whileStatement":
			stmt, err = buildWhile(t, c)
		case "doStatement":
			stmt, err = buildDo(t, c)
		case "returnStatement":
			stmt, err = buildReturn(t, c)
		default:
			return nil, fmt.Errorf("unexpected statement node %q", t.Value(c))
		}
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}
	return statements, nil
}

func buildLet(t *Tree, h NodeHandle) (Statement, error) {
	children := t.Children(h)
	name := t.LeafText(children[1])
	var lhs Expression = VarExpr{Var: name}

	idx := 2
	if t.Value(children[idx]) == "symbol" && t.LeafText(children[idx]) == "[" {
		index, err := buildExpression(t, children[idx+1])
		if err != nil {
			return nil, err
		}
		lhs = ArrayExpr{Var: name, Index: index}
		idx += 3 // '[' expression ']'
	}
	idx++ // '='

	rhs, err := buildExpression(t, children[idx])
	if err != nil {
		return nil, err
	}
	return LetStmt{Lhs: lhs, Rhs: rhs}, nil
}

func buildIf(t *Tree, h NodeHandle) (Statement, error) {
	children := t.Children(h)
	cond, err := buildExpression(t, children[2])
	if err != nil {
		return nil, err
	}
	thenBlock, err := buildStatements(t, children[5])
	if err != nil {
		return nil, err
	}

	var elseBlock []Statement
	if len(children) > 7 {
		elseBlock, err = buildStatements(t, children[9])
		if err != nil {
			return nil, err
		}
	}

	return IfStmt{Condition: cond, ThenBlock: thenBlock, ElseBlock: elseBlock}, nil
}

func buildWhile(t *Tree, h NodeHandle) (Statement, error) {
	children := t.Children(h)
	cond, err := buildExpression(t, children[2])
	if err != nil {
		return nil, err
	}
	block, err := buildStatements(t, children[5])
	if err != nil {
		return nil, err
	}
	return WhileStmt{Condition: cond, Block: block}, nil
}

func buildDo(t *Tree, h NodeHandle) (Statement, error) {
	children := t.Children(h)
	call, err := buildCall(t, children[1:len(children)-1])
	if err != nil {
		return nil, err
	}
	return DoStmt{FuncCall: call}, nil
}

func buildReturn(t *Tree, h NodeHandle) (Statement, error) {
	children := t.Children(h)
	var expr Expression
	if len(children) == 3 && t.Value(children[1]) == "expression" {
		var err error
		expr, err = buildExpression(t, children[1])
		if err != nil {
			return nil, err
		}
	}
	return ReturnStmt{Expr: expr}, nil
}

func buildExpression(t *Tree, h NodeHandle) (Expression, error) {
	children := t.Children(h)
	if len(children) == 0 {
		return nil, fmt.Errorf("empty expression")
	}
	lhs, err := buildTerm(t, children[0])
	if err != nil {
		return nil, err
	}
	for i := 1; i+1 < len(children); i += 2 {
		opType, ok := symbolToOp(t.LeafText(children[i]))
		if !ok {
			return nil, fmt.Errorf("unrecognized operator %q", t.LeafText(children[i]))
		}
		rhs, err := buildTerm(t, children[i+1])
		if err != nil {
			return nil, err
		}
		lhs = BinaryExpr{Type: opType, Lhs: lhs, Rhs: rhs}
	}
	return lhs, nil
}

// buildTerm disambiguates a 'term' node's alternative shape purely from the tags of
// its own children, the same way compile_engine.py's '_process_or_rule' dispatch
// chooses between keyword constant, array access, bare variable, call and so on.
func buildTerm(t *Tree, h NodeHandle) (Expression, error) {
	children := t.Children(h)
	if len(children) == 0 {
		return nil, fmt.Errorf("empty term")
	}
	first := children[0]
	tag, text := t.Value(first), t.LeafText(first)

	switch {
	case tag == "integerConstant":
		return LiteralExpr{Type: DataType{Main: Int}, Value: text}, nil
	case tag == "stringConstant":
		return LiteralExpr{Type: DataType{Main: String}, Value: text}, nil
	case tag == "keyword" && (text == "true" || text == "false"):
		return LiteralExpr{Type: DataType{Main: Bool}, Value: text}, nil
	case tag == "keyword" && text == "null":
		return LiteralExpr{Type: DataType{Main: Null}, Value: text}, nil
	case tag == "keyword" && text == "this":
		return VarExpr{Var: "this"}, nil
	case tag == "symbol" && text == "(":
		return buildExpression(t, children[1])
	case tag == "symbol" && (text == "-" || text == "~"):
		rhs, err := buildTerm(t, children[1])
		if err != nil {
			return nil, err
		}
		unaryType := Minus
		if text == "~" {
			unaryType = BoolNot
		}
		return UnaryExpr{Type: unaryType, Rhs: rhs}, nil
	case tag == "identifier" && len(children) >= 2 && t.Value(children[1]) == "symbol" && t.LeafText(children[1]) == "[":
		index, err := buildExpression(t, children[2])
		if err != nil {
			return nil, err
		}
		return ArrayExpr{Var: text, Index: index}, nil
	case tag == "identifier" && len(children) >= 2 && t.Value(children[1]) == "symbol" &&
		(t.LeafText(children[1]) == "(" || t.LeafText(children[1]) == "."):
		return buildCall(t, children)
	case tag == "identifier":
		return VarExpr{Var: text}, nil
	default:
		return nil, fmt.Errorf("unrecognized term starting with %s %q", tag, text)
	}
}

// buildCall reads a flattened subroutine-call shape (the children 'parseSubroutineCallNode'
// contributes directly, without a wrapping node) and decides between a local call
// ('foo(...)') and a qualified one ('obj.foo(...)' or 'Class.foo(...)').
func buildCall(t *Tree, nodes []NodeHandle) (FuncCallExpr, error) {
	if len(nodes) < 4 {
		return FuncCallExpr{}, fmt.Errorf("malformed subroutine call")
	}
	if t.Value(nodes[1]) == "symbol" && t.LeafText(nodes[1]) == "." {
		args, err := buildExpressionList(t, nodes[4])
		if err != nil {
			return FuncCallExpr{}, err
		}
		return FuncCallExpr{
			IsExtCall: true,
			Var:       t.LeafText(nodes[0]),
			FuncName:  t.LeafText(nodes[2]),
			Arguments: args,
		}, nil
	}

	args, err := buildExpressionList(t, nodes[2])
	if err != nil {
		return FuncCallExpr{}, err
	}
	return FuncCallExpr{FuncName: t.LeafText(nodes[0]), Arguments: args}, nil
}

func buildExpressionList(t *Tree, h NodeHandle) ([]Expression, error) {
	args := []Expression{}
	for _, c := range t.Children(h) {
		if t.Value(c) != "expression" {
			continue // skip the ',' separators
		}
		expr, err := buildExpression(t, c)
		if err != nil {
			return nil, err
		}
		args = append(args, expr)
	}
	return args, nil
}

// buildType reads the type starting at children[idx], returning the index right past it.
func buildType(t *Tree, children []NodeHandle, idx int) (DataType, int, error) {
	if idx >= len(children) {
		return DataType{}, idx, fmt.Errorf("expected a type")
	}
	dt, err := nodeToDataType(t, children[idx])
	return dt, idx + 1, err
}

func nodeToDataType(t *Tree, h NodeHandle) (DataType, error) {
	tag, text := t.Value(h), t.LeafText(h)
	switch {
	case tag == "keyword" && text == "int":
		return DataType{Main: Int}, nil
	case tag == "keyword" && text == "char":
		return DataType{Main: Char}, nil
	case tag == "keyword" && text == "boolean":
		return DataType{Main: Bool}, nil
	case tag == "keyword" && text == "void":
		return DataType{Main: Void}, nil
	case tag == "identifier":
		return DataType{Main: Object, Subtype: text}, nil
	default:
		return DataType{}, fmt.Errorf("expected a type, got %s %q", tag, text)
	}
}

// buildVarNameList collects every identifier in a '(',' varName)*' trailing run,
// ignoring the ',' and ';' symbol separators interleaved with it.
func buildVarNameList(t *Tree, rest []NodeHandle) []string {
	names := []string{}
	for _, c := range rest {
		if t.Value(c) == "identifier" {
			names = append(names, t.LeafText(c))
		}
	}
	return names
}

func symbolToOp(sym string) (ExprType, bool) {
	switch sym {
	case "+":
		return Plus, true
	case "-":
		return Minus, true
	case "*":
		return Multiply, true
	case "/":
		return Divide, true
	case "&":
		return BoolAnd, true
	case "|":
		return BoolOr, true
	case "<":
		return LessThan, true
	case ">":
		return GreatThan, true
	case "=":
		return Equal, true
	default:
		return "", false
	}
}
