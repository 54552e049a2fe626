package nn

import "image"

// Rect is an axis-aligned rectangle in pixel coordinates.
// The right and bottom edges are X+Width and Y+Height.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Create a Rect from left, top, right, bottom
func MakeRectLTRB(left, top, right, bottom int) Rect {
	return Rect{
		X:      left,
		Y:      top,
		Width:  right - left,
		Height: bottom - top,
	}
}

func (r Rect) X2() int {
	return r.X + r.Width
}

func (r Rect) Y2() int {
	return r.Y + r.Height
}

func (r Rect) Area() int {
	return r.Width * r.Height
}

func (r Rect) Intersection(b Rect) Rect {
	x1 := max(r.X, b.X)
	y1 := max(r.Y, b.Y)
	x2 := min(r.X2(), b.X2())
	y2 := min(r.Y2(), b.Y2())
	return Rect{
		X:      x1,
		Y:      y1,
		Width:  max(0, x2-x1),
		Height: max(0, y2-y1),
	}
}

// Intersection over Union.
// If the union has no area (eg two degenerate rectangles), the result is 0.
func (r Rect) IOU(b Rect) float64 {
	inter := r.Intersection(b).Area()
	union := r.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Returns the rectangle as an image.Rectangle
func (r Rect) ImageRect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X2(), r.Y2())
}
