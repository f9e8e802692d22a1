package layout

import "testing"

func overlaps(a, b Rect) bool {
	return a.X < b.X+b.Width && b.X < a.X+a.Width &&
		a.Y < b.Y+b.Height && b.Y < a.Y+a.Height
}

func TestGeometryHalvesWithGaps(t *testing.T) {
	tr := NewTree()
	a := tr.Insert(0, 1, DirRight)
	tr.Insert(a, 2, DirRight)

	bounds := Rect{X: 0, Y: 0, Width: 1920, Height: 1080}
	gaps := Gaps{Inner: 10, Outer: 20}
	got := tr.ComputeGeometry(bounds, gaps)
	if len(got) != 2 {
		t.Fatalf("placements = %d, want 2", len(got))
	}

	left, right := got[1], got[2]
	if !left.Visible || !right.Visible {
		t.Fatalf("both split children should be visible")
	}
	// Outer gap shrinks the box to 1880 wide; one inner gap leaves 1870
	// to split; each half is 935.
	if left.Rect.X != 20 || left.Rect.Width != 935 {
		t.Fatalf("left = %+v, want X=20 Width=935", left.Rect)
	}
	if right.Rect.X != 20+935+10 || right.Rect.Width != 935 {
		t.Fatalf("right = %+v, want X=965 Width=935", right.Rect)
	}
	if left.Rect.Height != 1040 || left.Rect.Y != 20 {
		t.Fatalf("left = %+v, want Y=20 Height=1040", left.Rect)
	}
	if overlaps(left.Rect, right.Rect) {
		t.Fatalf("siblings overlap: %+v / %+v", left.Rect, right.Rect)
	}
}

func TestGeometryLastChildAbsorbsRounding(t *testing.T) {
	tr := NewTree()
	a := tr.Insert(0, 1, DirRight)
	b := tr.Insert(a, 2, DirRight)
	tr.Insert(b, 3, DirRight) // ratios 0.5, 0.25, 0.25

	got := tr.ComputeGeometry(Rect{Width: 1001, Height: 500}, Gaps{})
	total := 0
	for _, p := range got {
		total += p.Rect.Width
	}
	if total != 1001 {
		t.Fatalf("widths sum to %d, want 1001", total)
	}
}

func TestGeometryVerticalSplit(t *testing.T) {
	tr := NewTree()
	a := tr.Insert(0, 1, DirRight)
	tr.Insert(a, 2, DirDown)

	got := tr.ComputeGeometry(Rect{Width: 800, Height: 600}, Gaps{})
	top, bottom := got[1], got[2]
	if top.Rect.Height != 300 || bottom.Rect.Height != 300 {
		t.Fatalf("heights = %d/%d, want 300/300", top.Rect.Height, bottom.Rect.Height)
	}
	if bottom.Rect.Y != 300 {
		t.Fatalf("bottom Y = %d, want 300", bottom.Rect.Y)
	}
	if top.Rect.Width != 800 {
		t.Fatalf("vertical split must keep full width, got %d", top.Rect.Width)
	}
}

func TestGeometryTabbedShowsOnlyFocused(t *testing.T) {
	tr := NewTree()
	a := tr.Insert(0, 1, DirRight)
	tr.Insert(a, 2, DirRight)
	tr.SetGroupKind(tr.Root(), KindTabbed)
	tr.SetFocus(2)

	got := tr.ComputeGeometry(Rect{Width: 800, Height: 600}, Gaps{})
	if got[1].Visible {
		t.Fatalf("unfocused tab should be hidden")
	}
	if !got[2].Visible {
		t.Fatalf("focused tab should be visible")
	}
	if got[2].Rect.Y != TabBarHeight || got[2].Rect.Height != 600-TabBarHeight {
		t.Fatalf("tab content = %+v, want strip of %d reserved", got[2].Rect, TabBarHeight)
	}
}

func TestGeometryStackedReservesHeaderPerChild(t *testing.T) {
	tr := NewTree()
	a := tr.Insert(0, 1, DirRight)
	b := tr.Insert(a, 2, DirRight)
	tr.Insert(b, 3, DirRight)
	tr.SetGroupKind(tr.Root(), KindStacked)
	tr.SetFocus(1)

	got := tr.ComputeGeometry(Rect{Width: 800, Height: 600}, Gaps{})
	header := 3 * TabBarHeight
	if got[1].Rect.Y != header || got[1].Rect.Height != 600-header {
		t.Fatalf("stacked content = %+v, want header of %d reserved", got[1].Rect, header)
	}
	if got[2].Visible || got[3].Visible {
		t.Fatalf("unfocused stacked children should be hidden")
	}
}

func TestGeometrySmartGapsSuppressedForSingleWindow(t *testing.T) {
	tr := NewTree()
	tr.Insert(0, 1, DirRight)

	got := tr.ComputeGeometry(Rect{Width: 800, Height: 600}, Gaps{Inner: 10, Outer: 20, Smart: true})
	if got[1].Rect != (Rect{X: 0, Y: 0, Width: 800, Height: 600}) {
		t.Fatalf("single window with smart gaps = %+v, want full bounds", got[1].Rect)
	}

	// A second window re-enables the gaps.
	tr.Insert(tr.FindLeaf(1), 2, DirRight)
	got = tr.ComputeGeometry(Rect{Width: 800, Height: 600}, Gaps{Inner: 10, Outer: 20, Smart: true})
	if got[1].Rect.X != 20 {
		t.Fatalf("gaps should apply with two windows, got %+v", got[1].Rect)
	}
}

func TestGeometryCoversExactlyVisibleWindows(t *testing.T) {
	tr := NewTree()
	a := tr.Insert(0, 1, DirRight)
	b := tr.Insert(a, 2, DirRight)
	tr.Insert(b, 3, DirDown)

	got := tr.ComputeGeometry(Rect{Width: 1200, Height: 800}, Gaps{Inner: 5, Outer: 5})
	if len(got) != 3 {
		t.Fatalf("placements = %d, want 3", len(got))
	}
	rects := []Rect{got[1].Rect, got[2].Rect, got[3].Rect}
	for i := range rects {
		for j := i + 1; j < len(rects); j++ {
			if overlaps(rects[i], rects[j]) {
				t.Fatalf("windows %d and %d overlap: %+v / %+v", i+1, j+1, rects[i], rects[j])
			}
		}
	}
}

func TestGeometryEmptyTree(t *testing.T) {
	tr := NewTree()
	if got := tr.ComputeGeometry(Rect{Width: 800, Height: 600}, Gaps{}); len(got) != 0 {
		t.Fatalf("empty tree should produce no placements, got %v", got)
	}
}
