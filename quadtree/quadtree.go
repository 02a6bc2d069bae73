// Package quadtree implements homogeneity-driven recursive decomposition of
// an 8-bit image into rectangular blobs, used by the background
// reconstructor to choose where to place Bézier control grids.
//
// Nodes live in a flat arena (indices, not pointers) rather than being
// individually heap-allocated, so a Reset is a slice truncation and tearing
// the tree down never requires walking child links.
//
// The source this package is modeled on threads a "root" parameter through
// its node-insertion calls that its own insertion routine never actually
// consults — every insert resolves via the tree's own root field regardless
// of what was passed in, making the threaded parameter and the "find my
// parent" walk it implies dead code. This package builds the tree with a
// direct recursive depth-first insert instead: each call that decides
// whether to split already has the arena slot it needs in hand, so there is
// nothing left to re-derive by walking back up from a child.
package quadtree

// Quadrant is an axis-aligned rectangle with inclusive bounds: Bottom and
// Right are the last row/column included, not one past it.
type Quadrant struct {
	Top, Left, Bottom, Right int
}

func (q Quadrant) width() int  { return q.Right - q.Left + 1 }
func (q Quadrant) height() int { return q.Bottom - q.Top + 1 }

// Blob is a decomposed rectangle tagged with its gray-range statistic.
type Blob struct {
	Quad  Quadrant
	Range int
}

type qnode struct {
	blob     Blob
	children [4]int32 // TL, TR, BL, BR; -1 means absent
}

const (
	childTL = 0
	childTR = 1
	childBL = 2
	childBR = 3
)

// Tree is an arena-backed quadtree decomposition of a single image.
type Tree struct {
	nodes []qnode
	root  int32

	img           []byte
	width, height int
	minBW, minBH  int
	minRange      int
}

// New constructs an empty Tree bound to the given source image and split
// thresholds. img is addressed row-major with the given stride (width).
func New(img []byte, width, height, minBW, minBH, minRange int) *Tree {
	return &Tree{
		nodes:    make([]qnode, 0, 64),
		root:     -1,
		img:      img,
		width:    width,
		height:   height,
		minBW:    minBW,
		minBH:    minBH,
		minRange: minRange,
	}
}

// Reset clears the tree, truncating the arena without deallocating its
// backing array so the next Decompose reuses the capacity.
func (t *Tree) Reset() {
	t.nodes = t.nodes[:0]
	t.root = -1
}

// Decompose (re)builds the tree over the full image rectangle.
func (t *Tree) Decompose() {
	t.Reset()
	full := Quadrant{Top: 0, Left: 0, Bottom: t.height - 1, Right: t.width - 1}
	t.root = t.insert(full)
}

func (t *Tree) minMax(q Quadrant) (min, max byte) {
	min, max = 255, 0
	for y := q.Top; y <= q.Bottom; y++ {
		row := y * t.width
		for x := q.Left; x <= q.Right; x++ {
			v := t.img[row+x]
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}
	return min, max
}

// insert computes the node for q, appends it to the arena, and — if q is
// large and non-homogeneous enough — recurses into its four children before
// returning. The returned index is always q's own slot, found directly,
// never by walking through a parent.
func (t *Tree) insert(q Quadrant) int32 {
	min, max := t.minMax(q)
	idx := int32(len(t.nodes))
	t.nodes = append(t.nodes, qnode{
		blob:     Blob{Quad: q, Range: int(max) - int(min)},
		children: [4]int32{-1, -1, -1, -1},
	})

	if q.width() > t.minBW && q.height() > t.minBH && int(max)-int(min) > t.minRange {
		// The source splits on a half-open exclusive bottom/right bound
		// (horizon_middle = (top+bottom)>>1 with bottom exclusive), which
		// hands the smaller half to the top/left children when the span is
		// odd. Our Top/Bottom/Left/Right are inclusive, so the equivalent
		// split point is computed against Bottom+1/Right+1.
		midY := (q.Top + q.Bottom + 1) / 2
		midX := (q.Left + q.Right + 1) / 2

		tl := Quadrant{Top: q.Top, Left: q.Left, Bottom: midY - 1, Right: midX - 1}
		tr := Quadrant{Top: q.Top, Left: midX, Bottom: midY - 1, Right: q.Right}
		bl := Quadrant{Top: midY, Left: q.Left, Bottom: q.Bottom, Right: midX - 1}
		br := Quadrant{Top: midY, Left: midX, Bottom: q.Bottom, Right: q.Right}

		t.nodes[idx].children[childTL] = t.insert(tl)
		t.nodes[idx].children[childTR] = t.insert(tr)
		t.nodes[idx].children[childBL] = t.insert(bl)
		t.nodes[idx].children[childBR] = t.insert(br)
	}

	return idx
}

func (t *Tree) isLeaf(idx int32) bool {
	c := t.nodes[idx].children
	return c[0] < 0 && c[1] < 0 && c[2] < 0 && c[3] < 0
}

// Leaves returns the leaf blobs in depth-first (TL, TR, BL, BR) order.
func (t *Tree) Leaves() []Blob {
	if t.root < 0 {
		return nil
	}
	var out []Blob
	var walk func(idx int32)
	walk = func(idx int32) {
		if t.isLeaf(idx) {
			out = append(out, t.nodes[idx].blob)
			return
		}
		for _, c := range t.nodes[idx].children {
			walk(c)
		}
	}
	walk(t.root)
	return out
}
