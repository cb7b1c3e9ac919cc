package components

// GridPos is an integer cell coordinate.
type GridPos struct {
	X, Y int
}

// Add returns p offset by (dx, dy).
func (p GridPos) Add(dx, dy int) GridPos {
	return GridPos{X: p.X + dx, Y: p.Y + dy}
}

// DistSq returns the squared Euclidean distance between two cells.
func (p GridPos) DistSq(q GridPos) int {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return dx*dx + dy*dy
}

// Chebyshev returns max(|dx|, |dy|).
func (p GridPos) Chebyshev(q GridPos) int {
	return max(abs(p.X-q.X), abs(p.Y-q.Y))
}

// InBounds reports whether p lies within a width x height grid.
func (p GridPos) InBounds(width, height int) bool {
	return p.X >= 0 && p.X < width && p.Y >= 0 && p.Y < height
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
