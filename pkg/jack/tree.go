package jack

// ----------------------------------------------------------------------------
// Parse Tree

// The Parser below builds a tree of Nodes rather than handing typed AST structs
// directly to its caller. Every Node is stored in an arena ('Tree.nodes') and
// addressed by its integer position ('NodeHandle') instead of a pointer, the same
// shape the reference compiler this is grounded on uses for its own 'TreeElement'/
// 'Tree' pair (see compile_engine.py): a Node is either an interior node tagged with
// the grammar rule that produced it ('class', 'classVarDec', 'expression', 'term',
// ...) or, when Leaf is true, a terminal carrying literal token text — in which case
// its parent's Value names the token kind ('keyword', 'symbol', 'integerConstant',
// 'stringConstant', 'identifier'). The root is always handle 0 and always labeled
// 'class'. 'astbuild.go' walks this tree to produce the typed jack.go AST that the
// rest of the package (lowering, typechecking) already consumes; 'xml.go' walks it
// to emit the optional debug XML dump.
type NodeHandle int

const noParent NodeHandle = -1

type Node struct {
	Value    string      // grammar rule name for an interior node, literal text for a leaf
	Leaf     bool        // true if this Node carries literal token text and has no children
	Parent   NodeHandle  // back-reference to the enclosing Node, noParent for the root
	Children []NodeHandle
}

// Tree is the arena every Node produced while parsing a single translation unit lives in.
type Tree struct {
	nodes []Node
}

func newTree() *Tree { return &Tree{} }

func (t *Tree) alloc(n Node) NodeHandle {
	n.Parent = noParent
	t.nodes = append(t.nodes, n)
	return NodeHandle(len(t.nodes) - 1)
}

// Interior allocates a non-leaf Node tagged 'value', with no children yet.
func (t *Tree) Interior(value string) NodeHandle { return t.alloc(Node{Value: value}) }

// Leaf allocates a terminal Node carrying 'value' as its literal token text.
func (t *Tree) Leaf(value string) NodeHandle { return t.alloc(Node{Value: value, Leaf: true}) }

// AddChild appends 'child' to 'parent's children and backfills child's parent handle.
func (t *Tree) AddChild(parent, child NodeHandle) {
	t.nodes[child].Parent = parent
	t.nodes[parent].Children = append(t.nodes[parent].Children, child)
}

// Root is always the first Node allocated while parsing a translation unit, i.e. 'class'.
func (t *Tree) Root() NodeHandle { return 0 }

func (t *Tree) Value(h NodeHandle) string { return t.nodes[h].Value }

func (t *Tree) IsLeaf(h NodeHandle) bool { return t.nodes[h].Leaf }

func (t *Tree) Children(h NodeHandle) []NodeHandle { return t.nodes[h].Children }

// LeafText returns the literal token text for a leaf Node, or for a terminal wrapper
// Node (one of the token-kind tags) the text of its single leaf child; "" otherwise.
func (t *Tree) LeafText(h NodeHandle) string {
	n := t.nodes[h]
	if n.Leaf {
		return n.Value
	}
	if len(n.Children) == 1 && t.nodes[n.Children[0]].Leaf {
		return t.nodes[n.Children[0]].Value
	}
	return ""
}
