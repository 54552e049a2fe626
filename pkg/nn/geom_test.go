package nn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIOU(t *testing.T) {
	a := Rect{
		X:      0,
		Y:      0,
		Width:  10,
		Height: 10,
	}
	b := Rect{
		X:      5,
		Y:      5,
		Width:  10,
		Height: 10,
	}
	require.Equal(t, 25.0/175.0, a.IOU(b))
	require.Equal(t, a.IOU(b), b.IOU(a))

	require.Equal(t, 1.0, a.IOU(a))

	// Disjoint
	c := Rect{X: 20, Y: 20, Width: 5, Height: 5}
	require.Equal(t, 0.0, a.IOU(c))
	require.Equal(t, 0.0, c.IOU(a))

	// Touching edges share no area
	d := Rect{X: 10, Y: 0, Width: 10, Height: 10}
	require.Equal(t, 0.0, a.IOU(d))

	// Contained
	e := Rect{X: 0, Y: 0, Width: 5, Height: 10}
	require.Equal(t, 0.5, a.IOU(e))
}

func TestIOUDegenerate(t *testing.T) {
	empty := Rect{X: 3, Y: 3}
	require.Equal(t, 0.0, empty.IOU(empty))
	require.Equal(t, 0.0, empty.IOU(Rect{X: 0, Y: 0, Width: 10, Height: 10}))
}

func TestIOURange(t *testing.T) {
	rects := []Rect{
		{0, 0, 10, 10},
		{5, 5, 10, 10},
		{-3, 2, 7, 1},
		{4, 4, 0, 0},
		{1, 1, 100, 3},
		{50, 50, 2, 2},
	}
	for _, a := range rects {
		for _, b := range rects {
			iou := a.IOU(b)
			require.GreaterOrEqual(t, iou, 0.0)
			require.LessOrEqual(t, iou, 1.0)
			require.Equal(t, iou, b.IOU(a))
		}
	}
}

func TestIntersection(t *testing.T) {
	a := MakeRectLTRB(0, 0, 10, 10)
	b := MakeRectLTRB(5, 2, 20, 8)
	require.Equal(t, MakeRectLTRB(5, 2, 10, 8), a.Intersection(b))
	require.Equal(t, 0, a.Intersection(MakeRectLTRB(30, 30, 40, 40)).Area())
}
