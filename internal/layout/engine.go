package layout

// Insert wraps win in a new leaf placed as a sibling of target on the
// side given by dir. If target's parent is already a split along dir's
// axis the leaf joins it, taking half of target's ratio; otherwise
// target is wrapped in a new 2-child split. An empty tree makes the
// leaf its root. Focus moves to the new leaf. The returned ID is the
// new leaf node; zero means win is already present or target is unknown.
func (t *Tree) Insert(target NodeID, win WindowID, dir Direction) NodeID {
	if t.FindLeaf(win) != 0 {
		return 0
	}
	if t.root == 0 {
		leaf := t.alloc(KindLeaf)
		leaf.Window = win
		t.root = leaf.ID
		return leaf.ID
	}
	tn := t.nodes[target]
	if tn == nil {
		return 0
	}

	leaf := t.alloc(KindLeaf)
	leaf.Window = win

	parent := t.nodes[tn.Parent]
	if parent == nil || parent.Kind != dir.axisKind() {
		parent = t.wrap(tn.ID, dir.axisKind())
	}

	// Split target's slot in half.
	idx := childIndex(parent, tn.ID)
	half := parent.Ratios[idx] / 2
	parent.Ratios[idx] = half

	at := idx
	if dir.forward() {
		at = idx + 1
	}
	parent.Children = append(parent.Children, 0)
	copy(parent.Children[at+1:], parent.Children[at:])
	parent.Children[at] = leaf.ID
	parent.Ratios = append(parent.Ratios, 0)
	copy(parent.Ratios[at+1:], parent.Ratios[at:])
	parent.Ratios[at] = half

	leaf.Parent = parent.ID
	parent.Focused = at
	t.SetFocus(win)
	return leaf.ID
}

// wrap replaces id's slot with a new single-child group of the given
// kind and reparents id under it. The group inherits id's ratio.
func (t *Tree) wrap(id NodeID, kind Kind) *Node {
	n := t.nodes[id]
	g := t.alloc(kind)
	g.Children = []NodeID{id}
	g.Ratios = []float64{1.0}
	g.Focused = 0
	g.Parent = n.Parent
	if p := t.nodes[n.Parent]; p != nil {
		p.Children[childIndex(p, id)] = g.ID
	} else {
		t.root = g.ID
	}
	n.Parent = g.ID
	return g
}

// Wrap exposes single-child group creation for split and layout
// commands targeting a root leaf.
func (t *Tree) Wrap(id NodeID, kind Kind) NodeID {
	if n := t.nodes[id]; n == nil || kind == KindLeaf {
		return 0
	}
	return t.wrap(id, kind).ID
}

// Remove deletes the leaf wrapping win, hands its ratio evenly to the
// remaining siblings, and collapses any group left with a single child
// so the tree stays minimal. Unknown windows are a no-op.
func (t *Tree) Remove(win WindowID) bool {
	leaf := t.FindLeaf(win)
	if leaf == 0 {
		return false
	}
	t.removeNode(leaf)
	return true
}

func (t *Tree) removeNode(id NodeID) {
	n := t.nodes[id]
	parentID := n.Parent
	delete(t.nodes, id)

	if parentID == 0 {
		t.root = 0
		return
	}
	p := t.nodes[parentID]
	idx := childIndex(p, id)
	freed := p.Ratios[idx]
	p.Children = append(p.Children[:idx], p.Children[idx+1:]...)
	p.Ratios = append(p.Ratios[:idx], p.Ratios[idx+1:]...)

	if len(p.Children) == 0 {
		t.removeNode(parentID)
		return
	}
	share := freed / float64(len(p.Children))
	for i := range p.Ratios {
		p.Ratios[i] += share
	}
	if p.Focused >= len(p.Children) {
		p.Focused = len(p.Children) - 1
	}
	if len(p.Children) == 1 {
		t.collapse(parentID)
	}
}

// collapse replaces a single-child group with its child, the
// pass-through elision that keeps the tree minimal.
func (t *Tree) collapse(id NodeID) {
	g := t.nodes[id]
	child := t.nodes[g.Children[0]]
	child.Parent = g.Parent
	if gp := t.nodes[g.Parent]; gp != nil {
		gp.Children[childIndex(gp, id)] = child.ID
	} else {
		t.root = child.ID
	}
	delete(t.nodes, id)
}

// groupAxis reports whether navigation through a group kind runs
// horizontally. Tabbed groups cycle left/right, stacked ones up/down.
func groupAxisHorizontal(k Kind) bool {
	return k == KindSplitH || k == KindTabbed
}

func matchesAxis(k Kind, dir Direction) bool {
	if k == KindLeaf {
		return false
	}
	horizontal := dir == DirLeft || dir == DirRight
	return groupAxisHorizontal(k) == horizontal
}

// MoveFocus walks focus one step in dir: ascend from the focused leaf
// until an ancestor group runs along dir's axis and has a sibling on
// that side, then descend that sibling's focused chain to a leaf.
// At a tree boundary focus is unchanged and ok is false.
func (t *Tree) MoveFocus(dir Direction) (win WindowID, ok bool) {
	ancestor, _, next := t.neighbor(t.FocusedLeaf(), dir)
	if ancestor == 0 {
		return t.FocusedWindow(), false
	}
	target := t.nodes[ancestor].Children[next]
	leaf := t.descendFocused(target)
	if leaf == 0 {
		return t.FocusedWindow(), false
	}
	w := t.nodes[leaf].Window
	t.SetFocus(w)
	return w, true
}

// neighbor ascends from id looking for the first ancestor group that
// runs along dir's axis with a sibling on dir's side. It returns the
// ancestor, the child index holding the ascent path, and the sibling
// index, or zeros when the boundary is reached.
func (t *Tree) neighbor(id NodeID, dir Direction) (ancestor NodeID, from, to int) {
	cur := id
	for cur != 0 {
		n := t.nodes[cur]
		if n == nil {
			return 0, 0, 0
		}
		p := t.nodes[n.Parent]
		if p == nil {
			return 0, 0, 0
		}
		idx := childIndex(p, cur)
		if matchesAxis(p.Kind, dir) {
			next := idx - 1
			if dir.forward() {
				next = idx + 1
			}
			if next >= 0 && next < len(p.Children) {
				return p.ID, idx, next
			}
		}
		cur = p.ID
	}
	return 0, 0, 0
}

func (t *Tree) descendFocused(id NodeID) NodeID {
	for {
		n := t.nodes[id]
		if n == nil {
			return 0
		}
		if n.Kind == KindLeaf {
			return id
		}
		id = n.Children[n.Focused]
	}
}

// Swap exchanges the focused leaf's subtree with its neighbor in dir,
// found by the same ascent as MoveFocus. Ratios travel with their
// subtrees, so a moved window keeps its size; focus follows the moved
// subtree. Boundary swaps are a no-op.
func (t *Tree) Swap(dir Direction) bool {
	leaf := t.FocusedLeaf()
	ancestor, from, to := t.neighbor(leaf, dir)
	if ancestor == 0 {
		return false
	}
	p := t.nodes[ancestor]
	p.Children[from], p.Children[to] = p.Children[to], p.Children[from]
	p.Ratios[from], p.Ratios[to] = p.Ratios[to], p.Ratios[from]
	t.SetFocus(t.nodes[leaf].Window)
	return true
}

// Resize grows (positive delta) or shrinks (negative delta) the focused
// container's share along the given axis against its adjacent sibling,
// clamped so neither side drops below MinRatio. The adjustment never
// propagates beyond the immediate sibling pair; resizing with no
// eligible sibling is a no-op.
func (t *Tree) Resize(horizontal bool, delta float64) bool {
	dir := DirRight
	if !horizontal {
		dir = DirDown
	}
	cur := t.FocusedLeaf()
	if cur == 0 {
		return false
	}
	for cur != 0 {
		n := t.nodes[cur]
		p := t.nodes[n.Parent]
		if p == nil {
			return false
		}
		if matchesAxis(p.Kind, dir) && (p.Kind == KindSplitH || p.Kind == KindSplitV) && len(p.Children) > 1 {
			i := childIndex(p, cur)
			j := i + 1
			if j >= len(p.Children) {
				j = i - 1
			}
			return adjustRatios(p, i, j, delta)
		}
		cur = p.ID
	}
	return false
}

func adjustRatios(p *Node, i, j int, delta float64) bool {
	if p.Ratios[i]+delta < MinRatio {
		delta = MinRatio - p.Ratios[i]
	}
	if p.Ratios[j]-delta < MinRatio {
		delta = p.Ratios[j] - MinRatio
	}
	if delta == 0 {
		return false
	}
	p.Ratios[i] += delta
	p.Ratios[j] -= delta
	return true
}

// SetGroupKind retags a group container. Leaves are rejected; callers
// wrap a root leaf first.
func (t *Tree) SetGroupKind(id NodeID, kind Kind) bool {
	n := t.nodes[id]
	if n == nil || n.Kind == KindLeaf || kind == KindLeaf {
		return false
	}
	n.Kind = kind
	return true
}
