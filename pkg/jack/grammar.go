package jack

import "fmt"

// ----------------------------------------------------------------------------
// Grammar Element (reified)

// Rather than hand-writing one recursive function per grammar production, 'parsing.go'
// below assembles each production as data: a tree of RuleElement values that a single
// generic engine (the process* methods further down) walks to drive the Tokenizer and
// grow a parse Tree. This mirrors the reference compiler's own 'RuleElement' hierarchy
// (rule.py: FIXED_TERMINAL/VAR_TERMINAL/OR/ZERO_OR_ONE/MULTIPLE/REF/LIST) one kind at a
// time rather than reimplementing that dispatch as Go control flow per production.
type RuleElementType int

const (
	RuleFixedTerminal   RuleElementType = iota // a specific keyword or symbol, e.g. 'class'
	RuleVarTerminal                            // any identifier token (varName, className, ...)
	RuleIntegerConstant                        // any integerConstant token
	RuleStringConstant                         // any stringConstant token
	RuleSequence                               // every Elements member must match in order
	RuleAlternative                            // the first Elements member that matches wins
	RuleZeroOrOne                              // Inner may match 0 or 1 times
	RuleRepeat                                 // Inner matches as many times as it can, 0 or more
	RuleRef                                    // indirection to a Produce function, enables recursion
)

// ProductionFunc is a bound grammar production (one per non-terminal), returning the
// handles of every Node it contributed to the parse Tree (usually exactly one container
// Node, except 'subroutineCall' which contributes its matched children directly without
// a wrapping Node of its own, same as the reference compiler's '_compile_subroutine_call').
type ProductionFunc func(*parser) ([]NodeHandle, error)

// RuleElement is the tagged-variant grammar node type; only the fields relevant to its
// Type are populated, the same "one struct wearing different hats" shape rule.py uses.
type RuleElement struct {
	Type RuleElementType
	Desc string

	Terminal string         // RuleFixedTerminal: exact token text to match
	Elements []RuleElement  // RuleSequence / RuleAlternative: the members to try/match
	Inner    *RuleElement   // RuleZeroOrOne / RuleRepeat: the wrapped element
	Produce  ProductionFunc // RuleRef: the production to invoke
}

func FixedTerminal(text string) RuleElement {
	return RuleElement{Type: RuleFixedTerminal, Desc: fmt.Sprintf("%q", text), Terminal: text}
}

func VarTerminal(desc string) RuleElement {
	return RuleElement{Type: RuleVarTerminal, Desc: desc}
}

func IntegerConstant() RuleElement {
	return RuleElement{Type: RuleIntegerConstant, Desc: "integerConstant"}
}

func StringConstant() RuleElement {
	return RuleElement{Type: RuleStringConstant, Desc: "stringConstant"}
}

func Sequence(desc string, elements ...RuleElement) RuleElement {
	return RuleElement{Type: RuleSequence, Desc: desc, Elements: elements}
}

func Alternative(desc string, branches ...RuleElement) RuleElement {
	return RuleElement{Type: RuleAlternative, Desc: desc, Elements: branches}
}

func ZeroOrOne(desc string, inner RuleElement) RuleElement {
	return RuleElement{Type: RuleZeroOrOne, Desc: desc, Inner: &inner}
}

func Repeat(desc string, inner RuleElement) RuleElement {
	return RuleElement{Type: RuleRepeat, Desc: desc, Inner: &inner}
}

func Ref(desc string, produce ProductionFunc) RuleElement {
	return RuleElement{Type: RuleRef, Desc: desc, Produce: produce}
}

// parser drives the Tokenizer according to a RuleElement tree, growing 'tree' as it goes.
type parser struct {
	tok  *Tokenizer
	tree *Tree
}

// process dispatches on rule.Type and returns the handles of every Node the rule
// contributed (see ProductionFunc's doc comment on why this is a slice, not one handle).
func (p *parser) process(rule RuleElement) ([]NodeHandle, error) {
	switch rule.Type {
	case RuleFixedTerminal:
		return p.processTerminal(rule)
	case RuleVarTerminal:
		return p.processTerminal(rule)
	case RuleIntegerConstant:
		return p.processConstant(rule, TokenIntConst)
	case RuleStringConstant:
		return p.processConstant(rule, TokenStrConst)
	case RuleSequence:
		return p.processSequence(rule)
	case RuleAlternative:
		return p.processAlternative(rule)
	case RuleZeroOrOne:
		return p.processZeroOrOne(rule)
	case RuleRepeat:
		return p.processRepeat(rule)
	case RuleRef:
		return p.processRef(rule)
	default:
		return nil, fmt.Errorf("unknown grammar element type %d", rule.Type)
	}
}

// node runs 'rule' and wraps every Node it contributes as children of a freshly
// allocated container Node tagged 'label', returning the container's own handle.
func (p *parser) node(label string, rule RuleElement) (NodeHandle, error) {
	container := p.tree.Interior(label)
	children, err := p.process(rule)
	if err != nil {
		return 0, err
	}
	for _, child := range children {
		p.tree.AddChild(container, child)
	}
	return container, nil
}

// processTerminal matches a single token (either an exact keyword/symbol, for
// RuleFixedTerminal, or any identifier, for RuleVarTerminal) and wraps it in a Node
// tagged with its TokenType so 'astbuild.go'/'xml.go' can tell keyword from symbol
// from identifier apart without re-lexing.
func (p *parser) processTerminal(rule RuleElement) ([]NodeHandle, error) {
	if p.tok.cursor < 0 || p.tok.cursor >= len(p.tok.tokens) {
		return nil, fmt.Errorf("expected %s, got end of input", rule.Desc)
	}
	current := p.tok.Current()

	switch rule.Type {
	case RuleFixedTerminal:
		if (current.Type != TokenKeyword && current.Type != TokenSymbol) || current.Value != rule.Terminal {
			return nil, fmt.Errorf("expected %s, got %s %q", rule.Desc, current.Type, current.Value)
		}
	case RuleVarTerminal:
		if current.Type != TokenIdentifier {
			return nil, fmt.Errorf("expected %s, got %s %q", rule.Desc, current.Type, current.Value)
		}
	}

	wrapper := p.tree.Interior(string(current.Type))
	p.tree.AddChild(wrapper, p.tree.Leaf(current.Value))
	p.tok.Advance()
	return []NodeHandle{wrapper}, nil
}

func (p *parser) processConstant(rule RuleElement, want TokenType) ([]NodeHandle, error) {
	if p.tok.cursor < 0 || p.tok.cursor >= len(p.tok.tokens) {
		return nil, fmt.Errorf("expected %s, got end of input", rule.Desc)
	}
	current := p.tok.Current()
	if current.Type != want {
		return nil, fmt.Errorf("expected %s, got %s %q", rule.Desc, current.Type, current.Value)
	}
	wrapper := p.tree.Interior(string(current.Type))
	p.tree.AddChild(wrapper, p.tree.Leaf(current.Value))
	p.tok.Advance()
	return []NodeHandle{wrapper}, nil
}

// processSequence matches every member of rule.Elements in order, flattening their
// contributed Nodes into one slice. On failure at member index i, the Tokenizer is
// rewound by i positions (the count of already-matched members, not tokens actually
// consumed) before the error is returned to the caller, replicating '_process_list_rule'
// in the reference compiler exactly, imprecise edge cases and all: in the Jack grammar
// every member that can precede a failing member happens to consume exactly one token,
// so rewind-by-member-count and rewind-by-token-count coincide everywhere it matters.
func (p *parser) processSequence(rule RuleElement) ([]NodeHandle, error) {
	matched := []NodeHandle{}
	for i, element := range rule.Elements {
		children, err := p.process(element)
		if err != nil {
			p.tok.Rewind(i)
			return nil, err
		}
		matched = append(matched, children...)
	}
	return matched, nil
}

// processAlternative tries each branch in order, returning the first one that
// succeeds. Each branch is responsible for rewinding the Tokenizer to the branch's
// own starting point on its own failure (processSequence and processTerminal both do),
// so a failed branch never leaves partial state behind for the next branch to see.
func (p *parser) processAlternative(rule RuleElement) ([]NodeHandle, error) {
	var lastErr error
	for _, branch := range rule.Elements {
		children, err := p.process(branch)
		if err == nil {
			return children, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no alternative matched for %s: %w", rule.Desc, lastErr)
}

// processZeroOrOne tries Inner once; a failure is swallowed (not propagated) and
// reported as simply "didn't match", same as 'ZeroOneRuleElement' in the reference.
func (p *parser) processZeroOrOne(rule RuleElement) ([]NodeHandle, error) {
	children, err := p.process(*rule.Inner)
	if err != nil {
		return nil, nil
	}
	return children, nil
}

// processRepeat matches Inner as many times as it can; the first failure terminates
// the loop without propagating, same as 'MultipleRuleElement' in the reference compiler.
func (p *parser) processRepeat(rule RuleElement) ([]NodeHandle, error) {
	matched := []NodeHandle{}
	for {
		children, err := p.process(*rule.Inner)
		if err != nil {
			return matched, nil
		}
		matched = append(matched, children...)
	}
}

// processRef simply invokes the bound production, which is how recursive productions
// (e.g. 'expression' containing a parenthesized 'expression') avoid Go's package
// initialization cycle: the indirection is a function call resolved at call time,
// not a struct literal that would need to reference itself before it exists.
func (p *parser) processRef(rule RuleElement) ([]NodeHandle, error) {
	return rule.Produce(p)
}
