package splittree

import (
	"math"
	"testing"
)

func approxEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestSinglePaneLayout(t *testing.T) {
	tr := New(1)
	layout := tr.Layout()
	if len(layout) != 1 {
		t.Fatalf("len(layout) = %d, want 1", len(layout))
	}
	if layout[0].Pane != 1 {
		t.Fatalf("pane = %d, want 1", layout[0].Pane)
	}
	r := layout[0].Rect
	if !approxEqual(r.X, 0) || !approxEqual(r.Width, 1) {
		t.Fatalf("rect = %+v", r)
	}
}

func TestHorizontalSplit(t *testing.T) {
	tr := New(1)
	tr.Split(1, Horizontal, 2)
	layout := tr.Layout()
	if len(layout) != 2 {
		t.Fatalf("len(layout) = %d, want 2", len(layout))
	}
	if !approxEqual(layout[0].Rect.Width, 0.5) {
		t.Fatalf("first width = %v, want 0.5", layout[0].Rect.Width)
	}
	if !approxEqual(layout[1].Rect.X, 0.5) {
		t.Fatalf("second x = %v, want 0.5", layout[1].Rect.X)
	}
}

func TestRemovePane(t *testing.T) {
	tr := New(1)
	tr.Split(1, Horizontal, 2)
	if !tr.Remove(2) {
		t.Fatalf("Remove(2) = false, want true")
	}
	ids := tr.PaneIDs()
	if len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("PaneIDs() = %v, want [1]", ids)
	}
}

func TestCannotRemoveOnlyPane(t *testing.T) {
	tr := New(1)
	if tr.Remove(1) {
		t.Fatalf("Remove on sole leaf should fail")
	}
	if len(tr.PaneIDs()) != 1 {
		t.Fatalf("tree mutated after failed remove")
	}
}

func TestRemoveUnreachablePane(t *testing.T) {
	tr := New(1)
	tr.Split(1, Horizontal, 2)
	if tr.Remove(99) {
		t.Fatalf("Remove of absent pane should report false")
	}
}

func TestNextPrevPaneWrap(t *testing.T) {
	tr := New(1)
	tr.Split(1, Horizontal, 2)
	tr.Split(2, Vertical, 3)

	if n, _ := tr.NextPane(1); n != 2 {
		t.Fatalf("NextPane(1) = %d, want 2", n)
	}
	if n, _ := tr.NextPane(3); n != 1 {
		t.Fatalf("NextPane(3) = %d, want 1 (wrap)", n)
	}
	if p, _ := tr.PrevPane(1); p != 3 {
		t.Fatalf("PrevPane(1) = %d, want 3 (wrap)", p)
	}
}

func TestAdjustRatioClamps(t *testing.T) {
	tr := New(1)
	tr.Split(1, Horizontal, 2)
	tr.AdjustRatio(1, 0.1)
	layout := tr.Layout()
	if !approxEqual(layout[0].Rect.Width, 0.6) {
		t.Fatalf("width after +0.1 = %v, want 0.6", layout[0].Rect.Width)
	}

	tr.AdjustRatio(1, 10)
	layout = tr.Layout()
	if !approxEqual(layout[0].Rect.Width, maxRatio) {
		t.Fatalf("width after large +delta = %v, want clamp to %v", layout[0].Rect.Width, maxRatio)
	}

	tr.AdjustRatio(1, -10)
	layout = tr.Layout()
	if !approxEqual(layout[0].Rect.Width, minRatio) {
		t.Fatalf("width after large -delta = %v, want clamp to %v", layout[0].Rect.Width, minRatio)
	}
}

func TestAdjustRatioClosestAncestor(t *testing.T) {
	tr := New(1)
	tr.Split(1, Horizontal, 2)
	tr.Split(1, Vertical, 3)
	// Now: Split(H, Split(V, Leaf(1), Leaf(3)), Leaf(2))
	// AdjustRatio(1, delta) should touch the innermost split (1 vs 3), not
	// the outer H split.
	before := tr.Layout()
	tr.AdjustRatio(1, 0.1)
	after := tr.Layout()

	var beforeOuter, afterOuter float64
	for _, pr := range before {
		if pr.Pane == 2 {
			beforeOuter = pr.Rect.X
		}
	}
	for _, pr := range after {
		if pr.Pane == 2 {
			afterOuter = pr.Rect.X
		}
	}
	if !approxEqual(beforeOuter, afterOuter) {
		t.Fatalf("outer split moved: before x=%v after x=%v, want unchanged", beforeOuter, afterOuter)
	}
}

func TestLayoutTilesUnitSquareWithoutOverlap(t *testing.T) {
	tr := New(1)
	tr.Split(1, Horizontal, 2)
	tr.Split(2, Vertical, 3)
	tr.Split(1, Vertical, 4)

	layout := tr.Layout()
	seen := map[PaneID]bool{}
	var area float64
	for _, pr := range layout {
		if pr.Rect.Width <= 0 || pr.Rect.Height <= 0 {
			t.Fatalf("non-positive rect for pane %d: %+v", pr.Pane, pr.Rect)
		}
		if seen[pr.Pane] {
			t.Fatalf("duplicate pane %d in layout", pr.Pane)
		}
		seen[pr.Pane] = true
		area += pr.Rect.Width * pr.Rect.Height
	}
	if !approxEqual(area, 1.0) {
		t.Fatalf("total area = %v, want 1.0 (tiles unit square)", area)
	}

	want := map[PaneID]bool{1: true, 2: true, 3: true, 4: true}
	if len(seen) != len(want) {
		t.Fatalf("leaf set = %v, want %v", seen, want)
	}
	for id := range want {
		if !seen[id] {
			t.Fatalf("missing pane %d in layout", id)
		}
	}
}

func TestContains(t *testing.T) {
	tr := New(1)
	tr.Split(1, Horizontal, 2)
	if !tr.Contains(1) || !tr.Contains(2) {
		t.Fatalf("Contains should report true for both leaves")
	}
	if tr.Contains(3) {
		t.Fatalf("Contains should report false for absent pane")
	}
}
