package systems

// Rect is a half-open cell rectangle [X0, X1) x [Y0, Y1).
type Rect struct {
	X0, Y0, X1, Y1 int
}

// Contains reports whether (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X0 && x < r.X1 && y >= r.Y0 && y < r.Y1
}

// PartitionIndex shards a grid into fixed-size square partitions. Every
// method is a pure function of the grid and partition size.
type PartitionIndex struct {
	Width, Height int
	Size          int
	PerRow        int
	PerCol        int
}

// NewPartitionIndex creates an index for a width x height grid split into
// size x size partitions. Edge partitions are clipped.
func NewPartitionIndex(width, height, size int) PartitionIndex {
	if size < 1 {
		size = 1
	}
	return PartitionIndex{
		Width:  width,
		Height: height,
		Size:   size,
		PerRow: (width + size - 1) / size,
		PerCol: (height + size - 1) / size,
	}
}

// Count returns the number of partitions.
func (p PartitionIndex) Count() int {
	return p.PerRow * p.PerCol
}

// ID returns the partition containing (x, y), or -1 when out of bounds.
func (p PartitionIndex) ID(x, y int) int {
	if x < 0 || x >= p.Width || y < 0 || y >= p.Height {
		return -1
	}
	return (y/p.Size)*p.PerRow + x/p.Size
}

// coords returns the partition's column and row.
func (p PartitionIndex) coords(id int) (int, int) {
	return id % p.PerRow, id / p.PerRow
}

// Bounds returns the cells covered by partition id.
func (p PartitionIndex) Bounds(id int) Rect {
	if id < 0 || id >= p.Count() {
		return Rect{}
	}
	cx, cy := p.coords(id)
	r := Rect{
		X0: cx * p.Size,
		Y0: cy * p.Size,
		X1: (cx + 1) * p.Size,
		Y1: (cy + 1) * p.Size,
	}
	r.X1 = min(r.X1, p.Width)
	r.Y1 = min(r.Y1, p.Height)
	return r
}

// AreNeighbors reports whether two partitions touch, diagonals included.
// A partition is its own neighbour.
func (p PartitionIndex) AreNeighbors(a, b int) bool {
	if a < 0 || b < 0 || a >= p.Count() || b >= p.Count() {
		return false
	}
	ax, ay := p.coords(a)
	bx, by := p.coords(b)
	return abs(ax-bx) <= 1 && abs(ay-by) <= 1
}

// Neighbors appends id and its adjacent partitions to dst in ascending order.
func (p PartitionIndex) Neighbors(dst []int, id int) []int {
	if id < 0 || id >= p.Count() {
		return dst
	}
	cx, cy := p.coords(id)
	for y := cy - 1; y <= cy+1; y++ {
		if y < 0 || y >= p.PerCol {
			continue
		}
		for x := cx - 1; x <= cx+1; x++ {
			if x < 0 || x >= p.PerRow {
				continue
			}
			dst = append(dst, y*p.PerRow+x)
		}
	}
	return dst
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
