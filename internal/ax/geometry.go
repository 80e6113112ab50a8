package ax

import "math"

// Point is a screen position
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Size is a width/height pair
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Rect is an origin plus size in screen coordinates
type Rect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// NewRect builds a Rect from a point and a size
func NewRect(origin Point, size Size) Rect {
	return Rect{X: origin.X, Y: origin.Y, Width: size.Width, Height: size.Height}
}

// Origin returns the top-left corner
func (r Rect) Origin() Point { return Point{X: r.X, Y: r.Y} }

// Size returns the extent
func (r Rect) Size() Size { return Size{Width: r.Width, Height: r.Height} }

// IsZero reports whether every component is zero
func (r Rect) IsZero() bool { return r == Rect{} }

// IsEmpty reports whether the rect covers no area
func (r Rect) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// Sanitize collapses malformed geometry: a negative width or height zeroes
// the whole rect.
func (r Rect) Sanitize() Rect {
	if r.Width < 0 || r.Height < 0 || math.IsNaN(r.Width) || math.IsNaN(r.Height) {
		return Rect{}
	}
	return r
}

// Intersection returns the overlapping area of two rects (zero if disjoint)
func (r Rect) Intersection(o Rect) Rect {
	x1 := math.Max(r.X, o.X)
	y1 := math.Max(r.Y, o.Y)
	x2 := math.Min(r.X+r.Width, o.X+o.Width)
	y2 := math.Min(r.Y+r.Height, o.Y+o.Height)
	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Intersects reports whether two rects overlap
func (r Rect) Intersects(o Rect) bool {
	return !r.Intersection(o).IsEmpty()
}

// Area returns width*height, zero for empty rects
func (r Rect) Area() float64 {
	if r.IsEmpty() {
		return 0
	}
	return r.Width * r.Height
}

// Near reports whether two rects match within tol on every component
func (r Rect) Near(o Rect, tol float64) bool {
	return math.Abs(r.X-o.X) <= tol && math.Abs(r.Y-o.Y) <= tol &&
		math.Abs(r.Width-o.Width) <= tol && math.Abs(r.Height-o.Height) <= tol
}
