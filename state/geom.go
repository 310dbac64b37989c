package state

// Rect is an axis-aligned rectangle anchored at its top-left corner.
// Screen coordinates: x grows right, y grows down.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Right() float64  { return r.X + r.Width }
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Intersects reports whether a and b overlap on both axes.
// Rectangles that only share an edge do not intersect.
func Intersects(a, b Rect) bool {
	return !(a.Right() <= b.X || a.Bottom() <= b.Y || b.Right() <= a.X || b.Bottom() <= a.Y)
}
