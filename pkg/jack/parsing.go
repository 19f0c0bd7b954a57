package jack

import (
	"fmt"
	"io"
)

// ----------------------------------------------------------------------------
// Parser

// Parser turns a stream of Jack source into a Class plus the parse Tree that produced
// it. Every production below is expressed as a RuleElement (see grammar.go) rather than
// as its own hand-written recursive function; the generic engine in grammar.go is what
// actually drives the Tokenizer, so the productions here only describe shape.
type Parser struct {
	reader io.Reader
	tree   *Tree
}

// NewParser builds a Parser that reads Jack source from 'reader' once 'Parse' is called.
func NewParser(reader io.Reader) *Parser {
	return &Parser{reader: reader}
}

// Parse consumes the whole reader and returns the parsed Class. Use 'Tree' afterwards
// to retrieve the parse tree that produced it, e.g. for '--emit-xml' debug dumps.
func (jp *Parser) Parse() (Class, error) {
	content, err := io.ReadAll(jp.reader)
	if err != nil {
		return Class{}, fmt.Errorf("could not read source: %w", err)
	}

	tok, err := NewTokenizer(content)
	if err != nil {
		return Class{}, err
	}
	if !tok.HasMore() {
		return Class{}, fmt.Errorf("empty translation unit")
	}
	tok.Advance()

	state := &parser{tok: tok, tree: newTree()}
	roots, err := parseClassNode(state)
	if err != nil {
		return Class{}, err
	}
	jp.tree = state.tree

	class, err := buildClass(state.tree, roots[0])
	if err != nil {
		return Class{}, err
	}
	return class, nil
}

// Tree returns the parse Tree produced by the last call to 'Parse'. Calling it before
// 'Parse' returns a zero-value Tree (no nodes).
func (jp *Parser) Tree() Tree {
	if jp.tree == nil {
		return Tree{}
	}
	return *jp.tree
}

// ----------------------------------------------------------------------------
// Shared terminal rules

// These mirror the reference compiler's own shared, non-recursive RuleElement
// instances (rule_definition.py: TYPE_RULE_ELEMENTS, KEYWORD_CONSTANT_RULE_ELEMENTS,
// OP_RULE_ELEMENTS, UNARY_OP_RULE_ELEMENTS) - they never reference a production
// function so they're safe to build once as package-level values.
var typeRule = Alternative("type",
	FixedTerminal("int"), FixedTerminal("char"), FixedTerminal("boolean"), VarTerminal("className"),
)

var subroutineReturnRule = Alternative("'void' | type", FixedTerminal("void"), typeRule)

var keywordConstantRule = Alternative("keywordConstant",
	FixedTerminal("true"), FixedTerminal("false"), FixedTerminal("null"), FixedTerminal("this"),
)

var opRule = Alternative("op",
	FixedTerminal("+"), FixedTerminal("-"), FixedTerminal("*"), FixedTerminal("/"),
	FixedTerminal("&"), FixedTerminal("|"), FixedTerminal("<"), FixedTerminal(">"), FixedTerminal("="),
)

var unaryOpRule = Alternative("unaryOp", FixedTerminal("-"), FixedTerminal("~"))

// ----------------------------------------------------------------------------
// Productions

func parseClassNode(p *parser) ([]NodeHandle, error) {
	n, err := p.node("class", Sequence("class",
		FixedTerminal("class"),
		VarTerminal("className"),
		FixedTerminal("{"),
		Repeat("classVarDec*", Ref("classVarDec", parseClassVarDecNode)),
		Repeat("subroutineDec*", Ref("subroutineDec", parseSubroutineNode)),
		FixedTerminal("}"),
	))
	if err != nil {
		return nil, err
	}
	return []NodeHandle{n}, nil
}

func parseClassVarDecNode(p *parser) ([]NodeHandle, error) {
	n, err := p.node("classVarDec", Sequence("classVarDec",
		Alternative("'static' | 'field'", FixedTerminal("static"), FixedTerminal("field")),
		typeRule,
		VarTerminal("varName"),
		Repeat("(',' varName)*", Sequence("',' varName", FixedTerminal(","), VarTerminal("varName"))),
		FixedTerminal(";"),
	))
	if err != nil {
		return nil, err
	}
	return []NodeHandle{n}, nil
}

func parseSubroutineNode(p *parser) ([]NodeHandle, error) {
	n, err := p.node("subroutineDec", Sequence("subroutineDec",
		Alternative("'constructor' | 'function' | 'method'",
			FixedTerminal("constructor"), FixedTerminal("function"), FixedTerminal("method")),
		subroutineReturnRule,
		VarTerminal("subroutineName"),
		FixedTerminal("("),
		Ref("parameterList", parseParameterListNode),
		FixedTerminal(")"),
		Ref("subroutineBody", parseSubroutineBodyNode),
	))
	if err != nil {
		return nil, err
	}
	return []NodeHandle{n}, nil
}

func parseParameterListNode(p *parser) ([]NodeHandle, error) {
	n, err := p.node("parameterList", ZeroOrOne("(type varName (',' type varName)*)?",
		Sequence("type varName (',' type varName)*",
			typeRule,
			VarTerminal("varName"),
			Repeat("(',' type varName)*", Sequence("',' type varName",
				FixedTerminal(","), typeRule, VarTerminal("varName"))),
		),
	))
	if err != nil {
		return nil, err
	}
	return []NodeHandle{n}, nil
}

func parseSubroutineBodyNode(p *parser) ([]NodeHandle, error) {
	n, err := p.node("subroutineBody", Sequence("subroutineBody",
		FixedTerminal("{"),
		Repeat("varDec*", Ref("varDec", parseVarDecNode)),
		Ref("statements", parseStatementsNode),
		FixedTerminal("}"),
	))
	if err != nil {
		return nil, err
	}
	return []NodeHandle{n}, nil
}

func parseVarDecNode(p *parser) ([]NodeHandle, error) {
	n, err := p.node("varDec", Sequence("varDec",
		FixedTerminal("var"),
		typeRule,
		VarTerminal("varName"),
		Repeat("(',' varName)*", Sequence("',' varName", FixedTerminal(","), VarTerminal("varName"))),
		FixedTerminal(";"),
	))
	if err != nil {
		return nil, err
	}
	return []NodeHandle{n}, nil
}

func parseStatementsNode(p *parser) ([]NodeHandle, error) {
	n, err := p.node("statements", Repeat("statement*", Alternative("statement",
		Ref("letStatement", parseLetNode),
		Ref("ifStatement", parseIfNode),
		Ref("whileStatement", parseWhileNode),
		Ref("doStatement", parseDoNode),
		Ref("returnStatement", parseReturnNode),
	)))
	if err != nil {
		return nil, err
	}
	return []NodeHandle{n}, nil
}

func parseLetNode(p *parser) ([]NodeHandle, error) {
	n, err := p.node("letStatement", Sequence("letStatement",
		FixedTerminal("let"),
		VarTerminal("varName"),
		ZeroOrOne("('[' expression ']')?", Sequence("'[' expression ']'",
			FixedTerminal("["), Ref("expression", parseExpressionNode), FixedTerminal("]"))),
		FixedTerminal("="),
		Ref("expression", parseExpressionNode),
		FixedTerminal(";"),
	))
	if err != nil {
		return nil, err
	}
	return []NodeHandle{n}, nil
}

func parseIfNode(p *parser) ([]NodeHandle, error) {
	n, err := p.node("ifStatement", Sequence("ifStatement",
		FixedTerminal("if"),
		FixedTerminal("("),
		Ref("expression", parseExpressionNode),
		FixedTerminal(")"),
		FixedTerminal("{"),
		Ref("statements", parseStatementsNode),
		FixedTerminal("}"),
		ZeroOrOne("('else' '{' statements '}')?", Sequence("'else' '{' statements '}'",
			FixedTerminal("else"), FixedTerminal("{"), Ref("statements", parseStatementsNode), FixedTerminal("}"))),
	))
	if err != nil {
		return nil, err
	}
	return []NodeHandle{n}, nil
}

func parseWhileNode(p *parser) ([]NodeHandle, error) {
	n, err := p.node("whileStatement", Sequence("whileStatement",
		FixedTerminal("while"),
		FixedTerminal("("),
		Ref("expression", parseExpressionNode),
		FixedTerminal(")"),
		FixedTerminal("{"),
		Ref("statements", parseStatementsNode),
		FixedTerminal("}"),
	))
	if err != nil {
		return nil, err
	}
	return []NodeHandle{n}, nil
}

func parseDoNode(p *parser) ([]NodeHandle, error) {
	n, err := p.node("doStatement", Sequence("doStatement",
		FixedTerminal("do"),
		Ref("subroutineCall", parseSubroutineCallNode),
		FixedTerminal(";"),
	))
	if err != nil {
		return nil, err
	}
	return []NodeHandle{n}, nil
}

func parseReturnNode(p *parser) ([]NodeHandle, error) {
	n, err := p.node("returnStatement", Sequence("returnStatement",
		FixedTerminal("return"),
		ZeroOrOne("expression?", Ref("expression", parseExpressionNode)),
		FixedTerminal(";"),
	))
	if err != nil {
		return nil, err
	}
	return []NodeHandle{n}, nil
}

func parseExpressionNode(p *parser) ([]NodeHandle, error) {
	n, err := p.node("expression", Sequence("expression",
		Ref("term", parseTermNode),
		Repeat("(op term)*", Sequence("op term", opRule, Ref("term", parseTermNode))),
	))
	if err != nil {
		return nil, err
	}
	return []NodeHandle{n}, nil
}

func parseTermNode(p *parser) ([]NodeHandle, error) {
	n, err := p.node("term", Alternative("term",
		IntegerConstant(),
		StringConstant(),
		keywordConstantRule,
		Ref("subroutineCall", parseSubroutineCallNode),
		Sequence("varName '[' expression ']'",
			VarTerminal("varName"), FixedTerminal("["), Ref("expression", parseExpressionNode), FixedTerminal("]")),
		VarTerminal("varName"),
		Sequence("'(' expression ')'", FixedTerminal("("), Ref("expression", parseExpressionNode), FixedTerminal(")")),
		Sequence("unaryOp term", unaryOpRule, Ref("term", parseTermNode)),
	))
	if err != nil {
		return nil, err
	}
	return []NodeHandle{n}, nil
}

// parseSubroutineCallNode contributes its matched Nodes directly, without a wrapping
// container, since the Jack grammar (and the reference compiler's '_compile_subroutine_call')
// never reifies "subroutineCall" as its own tree element - it only ever appears inlined
// as part of a 'doStatement' or a 'term'.
func parseSubroutineCallNode(p *parser) ([]NodeHandle, error) {
	return p.process(Alternative("subroutineCall",
		Sequence("subroutineName '(' expressionList ')'",
			VarTerminal("subroutineName"),
			FixedTerminal("("),
			Ref("expressionList", parseExpressionListNode),
			FixedTerminal(")"),
		),
		Sequence("(className | varName) '.' subroutineName '(' expressionList ')'",
			Alternative("className | varName", VarTerminal("className"), VarTerminal("varName")),
			FixedTerminal("."),
			VarTerminal("subroutineName"),
			FixedTerminal("("),
			Ref("expressionList", parseExpressionListNode),
			FixedTerminal(")"),
		),
	))
}

func parseExpressionListNode(p *parser) ([]NodeHandle, error) {
	n, err := p.node("expressionList", ZeroOrOne("(expression (',' expression)*)?",
		Sequence("expression (',' expression)*",
			Ref("expression", parseExpressionNode),
			Repeat("(',' expression)*", Sequence("',' expression",
				FixedTerminal(","), Ref("expression", parseExpressionNode))),
		),
	))
	if err != nil {
		return nil, err
	}
	return []NodeHandle{n}, nil
}
