package layout

import (
	"math"
	"testing"
)

func ratiosSumToOne(t *testing.T, tr *Tree) {
	t.Helper()
	for id, n := range tr.nodes {
		if n.Kind == KindLeaf {
			continue
		}
		sum := 0.0
		for _, r := range n.Ratios {
			sum += r
		}
		if math.Abs(sum-1.0) > ratioEpsilon {
			t.Fatalf("group %d: ratios %v sum to %f", id, n.Ratios, sum)
		}
	}
}

func TestInsertIntoEmptyTree(t *testing.T) {
	tr := NewTree()
	leaf := tr.Insert(0, 1, DirRight)
	if leaf == 0 {
		t.Fatalf("insert into empty tree failed")
	}
	if tr.Root() != leaf {
		t.Fatalf("root = %d, want %d", tr.Root(), leaf)
	}
	if got := tr.FocusedWindow(); got != 1 {
		t.Fatalf("focused window = %d, want 1", got)
	}
	if err := tr.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestInsertCreatesHorizontalSplit(t *testing.T) {
	tr := NewTree()
	a := tr.Insert(0, 1, DirRight)
	tr.Insert(a, 2, DirRight)

	root := tr.Node(tr.Root())
	if root.Kind != KindSplitH {
		t.Fatalf("root kind = %v, want splith", root.Kind)
	}
	if len(root.Children) != 2 {
		t.Fatalf("root children = %d, want 2", len(root.Children))
	}
	for i, want := range []float64{0.5, 0.5} {
		if math.Abs(root.Ratios[i]-want) > ratioEpsilon {
			t.Fatalf("ratio[%d] = %f, want %f", i, root.Ratios[i], want)
		}
	}
	if got := tr.Windows(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("windows = %v, want [1 2]", got)
	}
	if got := tr.FocusedWindow(); got != 2 {
		t.Fatalf("focused = %d, want 2", got)
	}
	ratiosSumToOne(t, tr)
}

func TestInsertInheritsSplitAxis(t *testing.T) {
	tr := NewTree()
	a := tr.Insert(0, 1, DirRight)
	b := tr.Insert(a, 2, DirRight)
	tr.Insert(b, 3, DirRight)

	root := tr.Node(tr.Root())
	if len(root.Children) != 3 {
		t.Fatalf("expected flat 3-child split, got %d children", len(root.Children))
	}
	// Window 2 held 0.5; the new sibling takes half of it.
	want := []float64{0.5, 0.25, 0.25}
	for i := range want {
		if math.Abs(root.Ratios[i]-want[i]) > ratioEpsilon {
			t.Fatalf("ratios = %v, want %v", root.Ratios, want)
		}
	}
	ratiosSumToOne(t, tr)
	if err := tr.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestInsertOppositeAxisNests(t *testing.T) {
	tr := NewTree()
	a := tr.Insert(0, 1, DirRight)
	b := tr.Insert(a, 2, DirRight)
	tr.Insert(b, 3, DirDown)

	root := tr.Node(tr.Root())
	if root.Kind != KindSplitH || len(root.Children) != 2 {
		t.Fatalf("root should stay a 2-child splith")
	}
	nested := tr.Node(root.Children[1])
	if nested.Kind != KindSplitV || len(nested.Children) != 2 {
		t.Fatalf("second slot should be a 2-child splitv, got %v with %d children", nested.Kind, len(nested.Children))
	}
	ratiosSumToOne(t, tr)
	if err := tr.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestInsertBeforeTarget(t *testing.T) {
	tr := NewTree()
	a := tr.Insert(0, 1, DirRight)
	tr.Insert(a, 2, DirLeft)

	if got := tr.Windows(); got[0] != 2 || got[1] != 1 {
		t.Fatalf("windows = %v, want [2 1]", got)
	}
}

func TestRemoveCollapsesToLeafRoot(t *testing.T) {
	tr := NewTree()
	a := tr.Insert(0, 1, DirRight)
	tr.Insert(a, 2, DirRight)

	if !tr.Remove(2) {
		t.Fatalf("remove failed")
	}
	root := tr.Node(tr.Root())
	if root.Kind != KindLeaf || root.Window != 1 {
		t.Fatalf("tree should collapse to Leaf(1), got %v", root.Kind)
	}
	if root.Parent != 0 {
		t.Fatalf("collapsed root has parent %d", root.Parent)
	}
	if err := tr.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestRemoveRedistributesRatios(t *testing.T) {
	tr := NewTree()
	a := tr.Insert(0, 1, DirRight)
	b := tr.Insert(a, 2, DirRight)
	tr.Insert(b, 3, DirRight) // ratios 0.5, 0.25, 0.25

	tr.Remove(1)
	root := tr.Node(tr.Root())
	if len(root.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(root.Children))
	}
	// 0.5 split evenly: each sibling gains 0.25.
	for i, want := range []float64{0.5, 0.5} {
		if math.Abs(root.Ratios[i]-want) > ratioEpsilon {
			t.Fatalf("ratios = %v, want [0.5 0.5]", root.Ratios)
		}
	}
	ratiosSumToOne(t, tr)
}

func TestRemoveLastWindowEmptiesTree(t *testing.T) {
	tr := NewTree()
	tr.Insert(0, 1, DirRight)
	tr.Remove(1)
	if !tr.Empty() {
		t.Fatalf("tree should be empty")
	}
	if tr.Len() != 0 {
		t.Fatalf("arena should be empty, has %d nodes", tr.Len())
	}
	if err := tr.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestInsertThenRemoveRestoresShape(t *testing.T) {
	tr := NewTree()
	a := tr.Insert(0, 1, DirRight)
	b := tr.Insert(a, 2, DirRight)
	before := tr.Windows()
	beforeRatios := append([]float64(nil), tr.Node(tr.Root()).Ratios...)

	tr.Insert(b, 3, DirRight)
	tr.Remove(3)

	after := tr.Windows()
	if len(after) != len(before) {
		t.Fatalf("windows = %v, want %v", after, before)
	}
	for i := range before {
		if after[i] != before[i] {
			t.Fatalf("windows = %v, want %v", after, before)
		}
	}
	root := tr.Node(tr.Root())
	for i := range beforeRatios {
		if math.Abs(root.Ratios[i]-beforeRatios[i]) > ratioEpsilon {
			t.Fatalf("ratios = %v, want %v", root.Ratios, beforeRatios)
		}
	}
}

func TestMoveFocusAcrossSplit(t *testing.T) {
	tr := NewTree()
	a := tr.Insert(0, 1, DirRight)
	b := tr.Insert(a, 2, DirRight)
	tr.Insert(b, 3, DirRight)

	if win, ok := tr.MoveFocus(DirLeft); !ok || win != 2 {
		t.Fatalf("focus left = (%d, %v), want (2, true)", win, ok)
	}
	if win, ok := tr.MoveFocus(DirLeft); !ok || win != 1 {
		t.Fatalf("focus left = (%d, %v), want (1, true)", win, ok)
	}
}

func TestMoveFocusIdempotentAtBoundary(t *testing.T) {
	tr := NewTree()
	a := tr.Insert(0, 1, DirRight)
	tr.Insert(a, 2, DirRight)
	tr.SetFocus(1)

	for i := 0; i < 3; i++ {
		win, ok := tr.MoveFocus(DirLeft)
		if ok {
			t.Fatalf("focus past boundary should be a no-op")
		}
		if win != 1 {
			t.Fatalf("focus = %d after boundary move, want 1", win)
		}
	}
	// Vertical movement in a horizontal split is also a boundary.
	if _, ok := tr.MoveFocus(DirUp); ok {
		t.Fatalf("vertical focus in splith should be a no-op")
	}
}

func TestMoveFocusDescendsFocusedChain(t *testing.T) {
	tr := NewTree()
	a := tr.Insert(0, 1, DirRight)
	b := tr.Insert(a, 2, DirRight)
	tr.Insert(b, 3, DirDown) // right slot: splitv [2, 3]
	tr.SetFocus(2)           // remember 2 as the right slot's focused child
	tr.SetFocus(1)

	if win, ok := tr.MoveFocus(DirRight); !ok || win != 2 {
		t.Fatalf("focus right = (%d, %v), want (2, true)", win, ok)
	}
}

func TestSwapWithNeighbor(t *testing.T) {
	tr := NewTree()
	a := tr.Insert(0, 1, DirRight)
	tr.Insert(a, 2, DirRight)
	tr.SetFocus(1)

	if !tr.Swap(DirRight) {
		t.Fatalf("swap failed")
	}
	if got := tr.Windows(); got[0] != 2 || got[1] != 1 {
		t.Fatalf("windows after swap = %v, want [2 1]", got)
	}
	if tr.FocusedWindow() != 1 {
		t.Fatalf("focus should follow the swapped window")
	}
	if tr.Swap(DirRight) {
		t.Fatalf("swap at boundary should be a no-op")
	}
}

func TestSwapCarriesRatios(t *testing.T) {
	tr := NewTree()
	a := tr.Insert(0, 1, DirRight)
	tr.Insert(a, 2, DirRight)
	tr.SetFocus(1)
	tr.Resize(true, 0.1) // [0.6 0.4]

	if !tr.Swap(DirRight) {
		t.Fatalf("swap failed")
	}
	if got := tr.Windows(); got[0] != 2 || got[1] != 1 {
		t.Fatalf("windows after swap = %v, want [2 1]", got)
	}
	// The moved window keeps its 0.6 share in its new slot.
	root := tr.Node(tr.Root())
	if math.Abs(root.Ratios[0]-0.4) > ratioEpsilon || math.Abs(root.Ratios[1]-0.6) > ratioEpsilon {
		t.Fatalf("ratios after swap = %v, want [0.4 0.6]", root.Ratios)
	}
	ratiosSumToOne(t, tr)
}

func TestResizeAgainstSibling(t *testing.T) {
	tr := NewTree()
	a := tr.Insert(0, 1, DirRight)
	tr.Insert(a, 2, DirRight)
	tr.SetFocus(1)

	if !tr.Resize(true, 0.1) {
		t.Fatalf("resize failed")
	}
	root := tr.Node(tr.Root())
	if math.Abs(root.Ratios[0]-0.6) > ratioEpsilon || math.Abs(root.Ratios[1]-0.4) > ratioEpsilon {
		t.Fatalf("ratios after grow = %v, want [0.6 0.4]", root.Ratios)
	}
	ratiosSumToOne(t, tr)
}

func TestResizeClampsAtFloor(t *testing.T) {
	tr := NewTree()
	a := tr.Insert(0, 1, DirRight)
	tr.Insert(a, 2, DirRight)
	tr.SetFocus(1)

	tr.Resize(true, 0.9) // would push the sibling below the floor
	root := tr.Node(tr.Root())
	if math.Abs(root.Ratios[1]-MinRatio) > ratioEpsilon {
		t.Fatalf("sibling ratio = %f, want floor %f", root.Ratios[1], MinRatio)
	}
	ratiosSumToOne(t, tr)
}

func TestResizeSoleChildIsNoOp(t *testing.T) {
	tr := NewTree()
	tr.Insert(0, 1, DirRight)
	if tr.Resize(true, 0.1) {
		t.Fatalf("resizing the only window should be a no-op")
	}
}

func TestResizeWrongAxisAscends(t *testing.T) {
	tr := NewTree()
	a := tr.Insert(0, 1, DirRight)
	b := tr.Insert(a, 2, DirRight)
	tr.Insert(b, 3, DirDown)
	tr.SetFocus(3)

	// Window 3 sits in a splitv; a horizontal resize must ascend to the
	// splith and adjust the whole right slot against window 1.
	if !tr.Resize(true, 0.1) {
		t.Fatalf("resize failed")
	}
	root := tr.Node(tr.Root())
	if math.Abs(root.Ratios[1]-0.6) > ratioEpsilon {
		t.Fatalf("right slot ratio = %f, want 0.6", root.Ratios[1])
	}
}

func TestSetGroupKind(t *testing.T) {
	tr := NewTree()
	a := tr.Insert(0, 1, DirRight)
	tr.Insert(a, 2, DirRight)

	if !tr.SetGroupKind(tr.Root(), KindTabbed) {
		t.Fatalf("retag failed")
	}
	if tr.Node(tr.Root()).Kind != KindTabbed {
		t.Fatalf("root kind = %v, want tabbed", tr.Node(tr.Root()).Kind)
	}
	if tr.SetGroupKind(tr.FindLeaf(1), KindSplitH) {
		t.Fatalf("retagging a leaf should fail")
	}
}

func TestWrapRootLeaf(t *testing.T) {
	tr := NewTree()
	tr.Insert(0, 1, DirRight)
	g := tr.Wrap(tr.Root(), KindSplitV)
	if g == 0 || tr.Root() != g {
		t.Fatalf("wrap should install a new root group")
	}
	if err := tr.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	// Insertion below the wrap inherits the vertical axis.
	tr.Insert(tr.FindLeaf(1), 2, DirDown)
	root := tr.Node(tr.Root())
	if root.Kind != KindSplitV || len(root.Children) != 2 {
		t.Fatalf("expected 2-child splitv root, got %v with %d children", root.Kind, len(root.Children))
	}
}

func TestCloneIsIndependent(t *testing.T) {
	tr := NewTree()
	a := tr.Insert(0, 1, DirRight)
	tr.Insert(a, 2, DirRight)

	cp := tr.Clone()
	cp.Remove(2)
	if len(tr.Windows()) != 2 {
		t.Fatalf("mutating the clone changed the original")
	}
	if err := cp.Validate(); err != nil {
		t.Fatalf("clone validate: %v", err)
	}
	// New IDs issued by the clone never collide with the original's.
	nid := cp.Insert(cp.FindLeaf(1), 3, DirRight)
	if tr.Node(nid) != nil {
		t.Fatalf("clone reused an ID present in the original")
	}
}

func TestValidateDetectsCorruption(t *testing.T) {
	tr := NewTree()
	a := tr.Insert(0, 1, DirRight)
	tr.Insert(a, 2, DirRight)

	root := tr.Node(tr.Root())
	root.Ratios[0] = 0.9 // sum now 1.4
	if err := tr.Validate(); err == nil {
		t.Fatalf("expected ratio-sum violation")
	}
	root.Ratios[0] = 0.5
	root.Focused = 5
	if err := tr.Validate(); err == nil {
		t.Fatalf("expected focused-index violation")
	}
}
