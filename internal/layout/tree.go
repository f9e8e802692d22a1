package layout

import "fmt"

// WindowID identifies a managed surface. IDs are issued monotonically by
// the owner of the tree and are never reused within a run.
type WindowID uint64

// NodeID identifies a container node within a Tree. Zero is "no node".
type NodeID uint64

// Kind is the container variant tag.
type Kind int

const (
	KindLeaf Kind = iota
	KindSplitH
	KindSplitV
	KindTabbed
	KindStacked
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindSplitH:
		return "splith"
	case KindSplitV:
		return "splitv"
	case KindTabbed:
		return "tabbed"
	case KindStacked:
		return "stacked"
	default:
		return "unknown"
	}
}

// Direction is a cardinal movement direction for focus and swap operations.
type Direction int

const (
	DirLeft Direction = iota
	DirRight
	DirUp
	DirDown
)

func (d Direction) String() string {
	switch d {
	case DirLeft:
		return "left"
	case DirRight:
		return "right"
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	default:
		return "unknown"
	}
}

// axisKind maps a direction onto the split kind that moves along it.
func (d Direction) axisKind() Kind {
	if d == DirLeft || d == DirRight {
		return KindSplitH
	}
	return KindSplitV
}

// forward reports whether the direction moves toward higher child indices.
func (d Direction) forward() bool {
	return d == DirRight || d == DirDown
}

// Node is one container in the tree. Ownership flows parent to children;
// Parent is a non-owning back-reference used only for ascent.
type Node struct {
	ID     NodeID
	Kind   Kind
	Parent NodeID

	// Leaf payload; meaningful only when Kind == KindLeaf.
	Window WindowID

	// Group payload. len(Children) == len(Ratios) and ratios sum to 1.0
	// within ratioEpsilon. Focused indexes the focused child.
	Children []NodeID
	Ratios   []float64
	Focused  int
}

// Tree is an arena of container nodes forming one workspace layout.
// All operations are total: a malformed request leaves the tree unchanged.
type Tree struct {
	nodes  map[NodeID]*Node
	root   NodeID
	nextID NodeID
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{nodes: make(map[NodeID]*Node), nextID: 1}
}

// Root returns the root node ID, or zero when the tree is empty.
func (t *Tree) Root() NodeID { return t.root }

// Empty reports whether the tree holds no containers.
func (t *Tree) Empty() bool { return t.root == 0 }

// Len returns the number of nodes in the arena.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the node for id, or nil when absent.
func (t *Tree) Node(id NodeID) *Node { return t.nodes[id] }

func (t *Tree) alloc(kind Kind) *Node {
	n := &Node{ID: t.nextID, Kind: kind}
	t.nextID++
	t.nodes[n.ID] = n
	return n
}

// Clone returns a deep copy sharing no memory with the receiver. The
// command path mutates a clone and swaps it in wholesale, so a failed
// operation never leaves a partially applied tree observable.
func (t *Tree) Clone() *Tree {
	c := &Tree{nodes: make(map[NodeID]*Node, len(t.nodes)), root: t.root, nextID: t.nextID}
	for id, n := range t.nodes {
		cp := *n
		cp.Children = append([]NodeID(nil), n.Children...)
		cp.Ratios = append([]float64(nil), n.Ratios...)
		c.nodes[id] = &cp
	}
	return c
}

// FindLeaf returns the node ID of the leaf wrapping win, or zero.
func (t *Tree) FindLeaf(win WindowID) NodeID {
	for id, n := range t.nodes {
		if n.Kind == KindLeaf && n.Window == win {
			return id
		}
	}
	return 0
}

// Windows returns every window in the tree in left-to-right traversal order.
func (t *Tree) Windows() []WindowID {
	var out []WindowID
	t.walkLeaves(t.root, func(n *Node) {
		out = append(out, n.Window)
	})
	return out
}

func (t *Tree) walkLeaves(id NodeID, fn func(*Node)) {
	n := t.nodes[id]
	if n == nil {
		return
	}
	if n.Kind == KindLeaf {
		fn(n)
		return
	}
	for _, c := range n.Children {
		t.walkLeaves(c, fn)
	}
}

// FocusedLeaf follows the focused-child chain from the root to a leaf.
func (t *Tree) FocusedLeaf() NodeID {
	id := t.root
	for {
		n := t.nodes[id]
		if n == nil {
			return 0
		}
		if n.Kind == KindLeaf {
			return id
		}
		if n.Focused < 0 || n.Focused >= len(n.Children) {
			return 0
		}
		id = n.Children[n.Focused]
	}
}

// FocusedWindow returns the window of the focused leaf, or zero.
func (t *Tree) FocusedWindow() WindowID {
	if id := t.FocusedLeaf(); id != 0 {
		return t.nodes[id].Window
	}
	return 0
}

// SetFocus points every group's focused index along the path from the
// root to the leaf wrapping win. Unknown windows are a no-op.
func (t *Tree) SetFocus(win WindowID) bool {
	leaf := t.FindLeaf(win)
	if leaf == 0 {
		return false
	}
	id := leaf
	for {
		n := t.nodes[id]
		if n.Parent == 0 {
			return true
		}
		p := t.nodes[n.Parent]
		for i, c := range p.Children {
			if c == id {
				p.Focused = i
				break
			}
		}
		id = p.ID
	}
}

// childIndex returns the position of child within parent, or -1.
func childIndex(parent *Node, child NodeID) int {
	for i, c := range parent.Children {
		if c == child {
			return i
		}
	}
	return -1
}

// Validate checks structural invariants: the arena is a single rooted
// tree with consistent parent back-references, every group's ratio list
// matches its child list and sums to 1.0, and every focused index is in
// range. A non-nil error indicates a programming defect upstream.
func (t *Tree) Validate() error {
	if t.root == 0 {
		if len(t.nodes) != 0 {
			return fmt.Errorf("empty root with %d orphaned nodes", len(t.nodes))
		}
		return nil
	}
	rootNode := t.nodes[t.root]
	if rootNode == nil {
		return fmt.Errorf("root %d not in arena", t.root)
	}
	if rootNode.Parent != 0 {
		return fmt.Errorf("root %d has parent %d", t.root, rootNode.Parent)
	}
	seen := make(map[NodeID]bool, len(t.nodes))
	var visit func(id NodeID) error
	visit = func(id NodeID) error {
		if seen[id] {
			return fmt.Errorf("node %d reached twice (cycle or shared child)", id)
		}
		seen[id] = true
		n := t.nodes[id]
		if n == nil {
			return fmt.Errorf("dangling child reference %d", id)
		}
		if n.Kind == KindLeaf {
			if len(n.Children) != 0 {
				return fmt.Errorf("leaf %d has children", id)
			}
			return nil
		}
		if len(n.Children) == 0 {
			return fmt.Errorf("group %d has no children", id)
		}
		if len(n.Children) != len(n.Ratios) {
			return fmt.Errorf("group %d: %d children, %d ratios", id, len(n.Children), len(n.Ratios))
		}
		if n.Focused < 0 || n.Focused >= len(n.Children) {
			return fmt.Errorf("group %d: focused index %d out of range", id, n.Focused)
		}
		sum := 0.0
		for _, r := range n.Ratios {
			sum += r
		}
		if sum < 1.0-ratioEpsilon || sum > 1.0+ratioEpsilon {
			return fmt.Errorf("group %d: ratios sum to %f", id, sum)
		}
		for _, c := range n.Children {
			cn := t.nodes[c]
			if cn == nil {
				return fmt.Errorf("group %d: dangling child %d", id, c)
			}
			if cn.Parent != id {
				return fmt.Errorf("node %d: parent back-reference %d, expected %d", c, cn.Parent, id)
			}
			if err := visit(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := visit(t.root); err != nil {
		return err
	}
	if len(seen) != len(t.nodes) {
		return fmt.Errorf("arena holds %d nodes, tree reaches %d", len(t.nodes), len(seen))
	}
	return nil
}
