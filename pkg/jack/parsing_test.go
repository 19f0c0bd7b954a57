package jack_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"its-hmny.dev/nand2tetris/pkg/jack"
)

func parse(t *testing.T, source string) jack.Class {
	t.Helper()
	parser := jack.NewParser(strings.NewReader(source))
	class, err := parser.Parse()
	require.NoError(t, err)
	return class
}

func TestParserClassShape(t *testing.T) {
	class := parse(t, `
		class Point {
			field int x, y;
			static int count;

			constructor Point new(int ax, int ay) {
				let x = ax;
				let y = ay;
				return this;
			}
		}
	`)

	assert.Equal(t, "Point", class.Name)
	assert.Equal(t, 3, class.Fields.Size())

	xField, ok := class.Fields.Get("x")
	require.True(t, ok)
	assert.Equal(t, jack.Variable{Name: "x", VarType: jack.Field, DataType: jack.DataType{Main: jack.Int}}, xField)

	countField, ok := class.Fields.Get("count")
	require.True(t, ok)
	assert.Equal(t, jack.Variable{Name: "count", VarType: jack.Static, DataType: jack.DataType{Main: jack.Int}}, countField)

	ctor, ok := class.Subroutines.Get("new")
	require.True(t, ok)
	assert.Equal(t, jack.Constructor, ctor.Type)
	assert.Equal(t, jack.DataType{Main: jack.Object, Subtype: "Point"}, ctor.Return)
	require.Len(t, ctor.Arguments, 2)
	assert.Equal(t, jack.Variable{Name: "ax", VarType: jack.Parameter, DataType: jack.DataType{Main: jack.Int}}, ctor.Arguments[0])
	require.Len(t, ctor.Statements, 3)
}

func TestParserExpressionPrecedence(t *testing.T) {
	// Jack gives every binary operator the same precedence, strictly left-to-right,
	// so '2 + 3 * 4' must parse as '(2 + 3) * 4', not the usual arithmetic precedence.
	class := parse(t, `
		class Main {
			function int compute() {
				return 2 + 3 * 4;
			}
		}
	`)

	fn, ok := class.Subroutines.Get("compute")
	require.True(t, ok)
	require.Len(t, fn.Statements, 1)

	ret, ok := fn.Statements[0].(jack.ReturnStmt)
	require.True(t, ok)

	outer, ok := ret.Expr.(jack.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, jack.Multiply, outer.Type)

	inner, ok := outer.Lhs.(jack.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, jack.Plus, inner.Type)
	assert.Equal(t, jack.LiteralExpr{Type: jack.DataType{Main: jack.Int}, Value: "2"}, inner.Lhs)
	assert.Equal(t, jack.LiteralExpr{Type: jack.DataType{Main: jack.Int}, Value: "3"}, inner.Rhs)
	assert.Equal(t, jack.LiteralExpr{Type: jack.DataType{Main: jack.Int}, Value: "4"}, outer.Rhs)
}

func TestParserTermDisambiguation(t *testing.T) {
	class := parse(t, `
		class Main {
			function void run() {
				var int a;
				let a = arr[i];
				do helper(1);
				do Output.printInt(2);
				let a = -a;
				let a = (a + 1);
				return;
			}
		}
	`)

	fn, ok := class.Subroutines.Get("run")
	require.True(t, ok)
	require.Len(t, fn.Statements, 7)

	letArray := fn.Statements[1].(jack.LetStmt)
	arrayExpr, ok := letArray.Rhs.(jack.ArrayExpr)
	require.True(t, ok)
	assert.Equal(t, "arr", arrayExpr.Var)
	assert.Equal(t, jack.VarExpr{Var: "i"}, arrayExpr.Index)

	localCall := fn.Statements[2].(jack.DoStmt)
	assert.False(t, localCall.FuncCall.IsExtCall)
	assert.Equal(t, "helper", localCall.FuncCall.FuncName)
	require.Len(t, localCall.FuncCall.Arguments, 1)

	qualifiedCall := fn.Statements[3].(jack.DoStmt)
	assert.True(t, qualifiedCall.FuncCall.IsExtCall)
	assert.Equal(t, "Output", qualifiedCall.FuncCall.Var)
	assert.Equal(t, "printInt", qualifiedCall.FuncCall.FuncName)

	unary := fn.Statements[4].(jack.LetStmt)
	unaryExpr, ok := unary.Rhs.(jack.UnaryExpr)
	require.True(t, ok)
	assert.Equal(t, jack.Minus, unaryExpr.Type)

	paren := fn.Statements[5].(jack.LetStmt)
	_, isBinary := paren.Rhs.(jack.BinaryExpr)
	assert.True(t, isBinary, "parenthesized expression should unwrap to its inner binary expression")
}

func TestParserKeywordConstants(t *testing.T) {
	class := parse(t, `
		class Main {
			function boolean check() {
				if (true) {
					return false;
				}
				return null;
			}
		}
	`)

	fn, ok := class.Subroutines.Get("check")
	require.True(t, ok)

	ifStmt := fn.Statements[0].(jack.IfStmt)
	assert.Equal(t, jack.LiteralExpr{Type: jack.DataType{Main: jack.Bool}, Value: "true"}, ifStmt.Condition)

	innerReturn := ifStmt.ThenBlock[0].(jack.ReturnStmt)
	assert.Equal(t, jack.LiteralExpr{Type: jack.DataType{Main: jack.Bool}, Value: "false"}, innerReturn.Expr)

	outerReturn := fn.Statements[1].(jack.ReturnStmt)
	assert.Equal(t, jack.LiteralExpr{Type: jack.DataType{Main: jack.Null}, Value: "null"}, outerReturn.Expr)
}

func TestParserRejectsMalformedInput(t *testing.T) {
	t.Run("missing closing brace", func(t *testing.T) {
		parser := jack.NewParser(strings.NewReader(`class Main {`))
		_, err := parser.Parse()
		assert.Error(t, err)
	})

	t.Run("empty translation unit", func(t *testing.T) {
		parser := jack.NewParser(strings.NewReader(``))
		_, err := parser.Parse()
		assert.Error(t, err)
	})

	t.Run("statement outside any subroutine", func(t *testing.T) {
		parser := jack.NewParser(strings.NewReader(`class Main { let x = 1; }`))
		_, err := parser.Parse()
		assert.Error(t, err)
	})
}
