// Package splittree implements the binary split tree that maps panes to
// normalized screen rectangles.
package splittree

// PaneID identifies a pane within a split tree.
type PaneID uint64

// Axis selects how a Split divides its rectangle.
type Axis int

const (
	// Horizontal divides width: first gets the left share, second the right.
	Horizontal Axis = iota
	// Vertical divides height: first gets the top share, second the bottom.
	Vertical
)

const (
	minRatio = 0.1
	maxRatio = 0.9
)

// node is the tagged union over leaf/split. pane is valid only when
// split == nil.
type node struct {
	pane  PaneID
	split *splitData
}

type splitData struct {
	axis   Axis
	ratio  float64
	first  *node
	second *node
}

func leaf(id PaneID) *node { return &node{pane: id} }

// Tree is a binary split tree over pane ids. The zero value is not usable;
// construct with New.
type Tree struct {
	root *node
}

// New creates a tree containing a single pane.
func New(pane PaneID) *Tree {
	return &Tree{root: leaf(pane)}
}

// Rect is a normalized rectangle in [0,1]^2.
type Rect struct {
	X, Y, Width, Height float64
}

// Split replaces the first Leaf(target) found in pre-order with a Split of
// axis dividing [target, newPane] at ratio 0.5. A no-op if target isn't
// present.
func (t *Tree) Split(target PaneID, axis Axis, newPane PaneID) {
	splitNode(t.root, target, axis, newPane)
}

func splitNode(n *node, target PaneID, axis Axis, newPane PaneID) bool {
	if n.split == nil {
		if n.pane != target {
			return false
		}
		old := &node{pane: n.pane}
		n.split = &splitData{axis: axis, ratio: 0.5, first: old, second: leaf(newPane)}
		n.pane = 0
		return true
	}
	return splitNode(n.split.first, target, axis, newPane) || splitNode(n.split.second, target, axis, newPane)
}

// Remove locates Leaf(pane) and replaces its parent Split with the sibling
// subtree. Removing the sole remaining leaf fails and leaves the tree
// unchanged. Removing an absent pane returns false.
func (t *Tree) Remove(pane PaneID) bool {
	if t.root.split == nil {
		return false // can't remove the only pane
	}
	return removeNode(t.root, pane)
}

func removeNode(n *node, pane PaneID) bool {
	s := n.split
	if s == nil {
		return false
	}
	if s.first.split == nil && s.first.pane == pane {
		*n = *s.second
		return true
	}
	if s.second.split == nil && s.second.pane == pane {
		*n = *s.first
		return true
	}
	return removeNode(s.first, pane) || removeNode(s.second, pane)
}

// AdjustRatio finds the closest ancestor Split that directly separates pane
// from its sibling and clamps ratio+delta to [0.1, 0.9]. No-op if pane is
// absent.
func (t *Tree) AdjustRatio(pane PaneID, delta float64) {
	adjustRatioNode(t.root, pane, delta)
}

func adjustRatioNode(n *node, pane PaneID, delta float64) bool {
	s := n.split
	if s == nil {
		return false
	}
	firstHas := contains(s.first, pane)
	secondHas := contains(s.second, pane)
	if !firstHas && !secondHas {
		return false
	}
	var recursed bool
	if firstHas {
		recursed = adjustRatioNode(s.first, pane, delta)
	} else {
		recursed = adjustRatioNode(s.second, pane, delta)
	}
	if recursed {
		return true
	}
	s.ratio = clamp(s.ratio+delta, minRatio, maxRatio)
	return true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Layout walks the tree depth-first, returning (pane, rect) pairs in
// normalized [0,1]^2 coordinates. Every returned rect has positive width and
// height; pane ids are unique and exactly the set of leaves.
func (t *Tree) Layout() []PaneRect {
	var out []PaneRect
	layoutNode(t.root, Rect{0, 0, 1, 1}, &out)
	return out
}

// PaneRect pairs a pane id with its normalized rectangle.
type PaneRect struct {
	Pane PaneID
	Rect Rect
}

func layoutNode(n *node, r Rect, out *[]PaneRect) {
	if n.split == nil {
		*out = append(*out, PaneRect{Pane: n.pane, Rect: r})
		return
	}
	s := n.split
	switch s.axis {
	case Horizontal:
		firstW := r.Width * s.ratio
		layoutNode(s.first, Rect{r.X, r.Y, firstW, r.Height}, out)
		layoutNode(s.second, Rect{r.X + firstW, r.Y, r.Width - firstW, r.Height}, out)
	case Vertical:
		firstH := r.Height * s.ratio
		layoutNode(s.first, Rect{r.X, r.Y, r.Width, firstH}, out)
		layoutNode(s.second, Rect{r.X, r.Y + firstH, r.Width, r.Height - firstH}, out)
	}
}

// PaneIDs returns every leaf pane id in pre-order.
func (t *Tree) PaneIDs() []PaneID {
	var out []PaneID
	collectIDs(t.root, &out)
	return out
}

func collectIDs(n *node, out *[]PaneID) {
	if n.split == nil {
		*out = append(*out, n.pane)
		return
	}
	collectIDs(n.split.first, out)
	collectIDs(n.split.second, out)
}

// Contains reports whether pane is a leaf of the tree.
func (t *Tree) Contains(pane PaneID) bool {
	return contains(t.root, pane)
}

func contains(n *node, pane PaneID) bool {
	if n.split == nil {
		return n.pane == pane
	}
	return contains(n.split.first, pane) || contains(n.split.second, pane)
}

// NextPane returns the leaf following current in in-order sequence, wrapping
// around. The second return is false if current isn't a leaf of the tree.
func (t *Tree) NextPane(current PaneID) (PaneID, bool) {
	ids := t.PaneIDs()
	for i, id := range ids {
		if id == current {
			return ids[(i+1)%len(ids)], true
		}
	}
	return 0, false
}

// PrevPane returns the leaf preceding current in in-order sequence, wrapping
// around. The second return is false if current isn't a leaf of the tree.
func (t *Tree) PrevPane(current PaneID) (PaneID, bool) {
	ids := t.PaneIDs()
	for i, id := range ids {
		if id == current {
			return ids[(i+len(ids)-1)%len(ids)], true
		}
	}
	return 0, false
}
