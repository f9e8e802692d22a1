package layout

// Rect is a window or container box in output coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Gaps configures spacing applied during geometry computation. Outer is
// subtracted at the workspace boundary, Inner between adjacent siblings.
// Smart suppresses both when the tree holds exactly one window.
type Gaps struct {
	Inner int
	Outer int
	Smart bool
}

// Placement is the computed result for one window. Hidden children of
// tabbed/stacked groups carry the group's content box with Visible false.
type Placement struct {
	Rect    Rect
	Visible bool
}

// TabBarHeight is the strip reserved for the tab row of a tabbed group
// and per title bar of a stacked group.
const TabBarHeight = 24

// MinRatio is the floor a resize can push any sibling's ratio to.
const MinRatio = 0.05

const ratioEpsilon = 1e-4

// ComputeGeometry partitions bounds across every window in the tree and
// returns a placement per window. It is a pure read: the tree is not
// modified. Split groups allocate the axis proportionally to ratios with
// the last child absorbing rounding remainder; tabbed and stacked groups
// give the content box to every child but mark only the focused chain
// visible.
func (t *Tree) ComputeGeometry(bounds Rect, gaps Gaps) map[WindowID]Placement {
	out := make(map[WindowID]Placement)
	if t.root == 0 {
		return out
	}
	if gaps.Smart && t.countLeaves(t.root) == 1 {
		gaps.Inner = 0
		gaps.Outer = 0
	}
	inner := shrink(bounds, gaps.Outer)
	t.layoutNode(t.root, inner, gaps.Inner, true, out)
	return out
}

func (t *Tree) countLeaves(id NodeID) int {
	n := t.nodes[id]
	if n == nil {
		return 0
	}
	if n.Kind == KindLeaf {
		return 1
	}
	total := 0
	for _, c := range n.Children {
		total += t.countLeaves(c)
	}
	return total
}

func shrink(r Rect, by int) Rect {
	r.X += by
	r.Y += by
	r.Width -= 2 * by
	r.Height -= 2 * by
	if r.Width < 1 {
		r.Width = 1
	}
	if r.Height < 1 {
		r.Height = 1
	}
	return r
}

func (t *Tree) layoutNode(id NodeID, box Rect, gap int, visible bool, out map[WindowID]Placement) {
	n := t.nodes[id]
	if n == nil {
		return
	}
	switch n.Kind {
	case KindLeaf:
		out[n.Window] = Placement{Rect: box, Visible: visible}

	case KindSplitH:
		t.layoutSplit(n, box, gap, visible, true, out)

	case KindSplitV:
		t.layoutSplit(n, box, gap, visible, false, out)

	case KindTabbed:
		content := box
		content.Y += TabBarHeight
		content.Height -= TabBarHeight
		if content.Height < 1 {
			content.Height = 1
		}
		for i, c := range n.Children {
			t.layoutNode(c, content, gap, visible && i == n.Focused, out)
		}

	case KindStacked:
		content := box
		header := TabBarHeight * len(n.Children)
		content.Y += header
		content.Height -= header
		if content.Height < 1 {
			content.Height = 1
		}
		for i, c := range n.Children {
			t.layoutNode(c, content, gap, visible && i == n.Focused, out)
		}
	}
}

func (t *Tree) layoutSplit(n *Node, box Rect, gap int, visible, horizontal bool, out map[WindowID]Placement) {
	count := len(n.Children)
	if count == 0 {
		return
	}
	span := box.Width
	if !horizontal {
		span = box.Height
	}
	usable := span - gap*(count-1)
	if usable < count {
		usable = count
	}
	offset := 0
	for i, c := range n.Children {
		size := int(float64(usable) * n.Ratios[i])
		if i == count-1 {
			size = usable - offset // last child absorbs rounding
		}
		if size < 1 {
			size = 1
		}
		child := box
		if horizontal {
			child.X = box.X + offset + gap*i
			child.Width = size
		} else {
			child.Y = box.Y + offset + gap*i
			child.Height = size
		}
		t.layoutNode(c, child, gap, visible, out)
		offset += size
	}
}
