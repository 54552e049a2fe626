// Package augment grows a training set by rotating images together with their labels.
package augment

import (
	"image"
	"math"

	"github.com/cyclopcam/parkinglot/pkg/nn"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// RotationMatrix returns the 2x3 affine transform that rotates by angleDeg about (cx, cy).
// Positive angles rotate counter-clockwise on screen (y points down).
func RotationMatrix(cx, cy, angleDeg float64) f64.Aff3 {
	rad := angleDeg * math.Pi / 180
	a := math.Cos(rad)
	b := math.Sin(rad)
	return f64.Aff3{
		a, b, (1-a)*cx - b*cy,
		-b, a, b*cx + (1-a)*cy,
	}
}

func apply(m f64.Aff3, x, y float64) (float64, float64) {
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}

// Rotate rotates img about its center, and moves the boxes with it.
// The output has the same dimensions as the input. Content that rotates out of the frame
// is cropped, and uncovered areas are black.
// Each box becomes the axis-aligned bounding box of its rotated corners, so boxes grow
// for angles that are not a multiple of 90 degrees.
// Boxes are not clipped or filtered. See KeepInside.
func Rotate(img image.Image, boxes []nn.Box, angleDeg float64) (*image.RGBA, []nn.Box) {
	bounds := img.Bounds()
	width := float64(bounds.Dx())
	height := float64(bounds.Dy())
	cx := width / 2
	cy := height / 2
	m := RotationMatrix(cx, cy, angleDeg)

	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)
	// The matrix is in image coordinates, but Transform wants the source rectangle's coordinates
	s2d := m
	s2d[2] -= m[0]*float64(bounds.Min.X) + m[1]*float64(bounds.Min.Y)
	s2d[5] -= m[3]*float64(bounds.Min.X) + m[4]*float64(bounds.Min.Y)
	draw.BiLinear.Transform(dst, s2d, img, bounds, draw.Src, nil)

	rotated := make([]nn.Box, 0, len(boxes))
	for _, b := range boxes {
		x1 := (b.CX - b.W/2) * width
		y1 := (b.CY - b.H/2) * height
		x2 := (b.CX + b.W/2) * width
		y2 := (b.CY + b.H/2) * height
		minX, minY := math.Inf(1), math.Inf(1)
		maxX, maxY := math.Inf(-1), math.Inf(-1)
		for _, p := range [4][2]float64{{x1, y1}, {x2, y1}, {x1, y2}, {x2, y2}} {
			x, y := apply(m, p[0], p[1])
			minX = min(minX, x)
			minY = min(minY, y)
			maxX = max(maxX, x)
			maxY = max(maxY, y)
		}
		rotated = append(rotated, nn.Box{
			Class: b.Class,
			CX:    (minX + maxX) / 2 / width,
			CY:    (minY + maxY) / 2 / height,
			W:     (maxX - minX) / width,
			H:     (maxY - minY) / height,
		})
	}
	return dst, rotated
}

// KeepInside drops boxes whose center is outside of the image
func KeepInside(boxes []nn.Box) []nn.Box {
	keep := make([]nn.Box, 0, len(boxes))
	for _, b := range boxes {
		if b.CX < 0 || b.CX > 1 || b.CY < 0 || b.CY > 1 {
			continue
		}
		keep = append(keep, b)
	}
	return keep
}
