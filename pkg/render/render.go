// Package render draws spot occupancy onto dataset images.
package render

import (
	"fmt"
	"image"
	"image/color"
	"sort"
	"sync"

	"github.com/cyclopcam/parkinglot/pkg/nn"
	"github.com/cyclopcam/parkinglot/pkg/occupancy"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	lineWidth    = 2
	legendAlpha  = 0.4
	legendFontPt = 18
	legendLineY  = 30 // Vertical distance between legend lines
)

// Palette is the set of outline colors
type Palette struct {
	Vehicle         color.Color
	Occupied        color.Color
	EmptyAccessible color.Color
	EmptySpot       color.Color
	Unknown         color.Color
}

func DefaultPalette() Palette {
	return Palette{
		Vehicle:         color.RGBA{255, 165, 0, 255},
		Occupied:        color.RGBA{255, 0, 0, 255},
		EmptyAccessible: color.RGBA{0, 0, 255, 255},
		EmptySpot:       color.RGBA{0, 255, 0, 255},
		Unknown:         color.RGBA{0, 0, 0, 255},
	}
}

// Options control the appearance of rendered images
type Options struct {
	Threshold         float64 // IoU that a vehicle must exceed for a spot to be occupied
	HighlightVehicles bool    // Draw vehicle boxes
	Palette           Palette
}

func DefaultOptions() *Options {
	return &Options{
		Threshold:         nn.DefaultOccupancyThreshold,
		HighlightVehicles: true,
		Palette:           DefaultPalette(),
	}
}

type outline struct {
	rect     nn.Rect
	color    color.Color
	occupied bool
}

// The face is shared by all images. Rendering is single threaded.
var legendFace = sync.OnceValues(func() (font.Face, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("Failed to parse legend font: %w", err)
	}
	return truetype.NewFace(f, &truetype.Options{Size: legendFontPt}), nil
})

// outlines returns the rectangles to draw, in drawing order.
// Occupied spots come last so that they are drawn on top.
func outlines(annotations []occupancy.Annotation, opts *Options) []outline {
	out := []outline{}
	for _, a := range annotations {
		o := outline{rect: a.Rect, occupied: a.Occupied}
		switch a.Box.Class {
		case nn.ClassVehicle:
			if !opts.HighlightVehicles {
				continue
			}
			o.color = opts.Palette.Vehicle
		case nn.ClassAccessibleSpot:
			o.color = opts.Palette.EmptyAccessible
		case nn.ClassSpot:
			o.color = opts.Palette.EmptySpot
		default:
			o.color = opts.Palette.Unknown
		}
		if a.Occupied {
			o.color = opts.Palette.Occupied
		}
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return !out[i].occupied && out[j].occupied
	})
	return out
}

// Annotate draws the boxes and a legend onto a copy of img, and returns the copy
// along with the tally of the image. Tally.ImageFile is left empty.
func Annotate(img image.Image, boxes []nn.Box, opts *Options) (image.Image, occupancy.Tally, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	b := img.Bounds()
	annotations, tally := occupancy.Assess(b.Dx(), b.Dy(), boxes, opts.Threshold)

	dc := gg.NewContextForImage(img)
	dc.SetLineWidth(lineWidth)
	for _, o := range outlines(annotations, opts) {
		dc.SetColor(o.color)
		dc.DrawRectangle(float64(o.rect.X), float64(o.rect.Y), float64(o.rect.Width), float64(o.rect.Height))
		dc.Stroke()
	}

	face, err := legendFace()
	if err != nil {
		return nil, tally, err
	}
	dc.SetFontFace(face)
	drawLegend(dc, &tally)
	return dc.Image(), tally, nil
}

// Draw a translucent black panel, and then white text lines on top of it
func drawPanel(dc *gg.Context, x1, y1, x2, y2 float64, textX, textY float64, lines []string) {
	dc.SetRGBA(0, 0, 0, legendAlpha)
	dc.DrawRectangle(x1, y1, x2-x1, y2-y1)
	dc.Fill()
	dc.SetRGB(1, 1, 1)
	for i, line := range lines {
		dc.DrawString(line, textX, textY+float64(i*legendLineY))
	}
}

func drawLegend(dc *gg.Context, t *occupancy.Tally) {
	w := float64(dc.Width())

	// Top right: raw counts
	drawPanel(dc, w-360, 0, w-30, 110, w-350, 30, []string{
		fmt.Sprintf("Accessible parking spots: %v", t.AccessibleSpots),
		fmt.Sprintf("Parking spots: %v", t.Spots),
		fmt.Sprintf("Vehicles: %v", t.Vehicles),
	})

	// Top left: occupancy
	drawPanel(dc, 20, 0, 615, 170, 30, 30, []string{
		fmt.Sprintf("Empty accessible parking spots: %v", t.EmptyAccessible),
		fmt.Sprintf("Occupied accessible parking spots: %v", t.OccupiedAccessible),
		fmt.Sprintf("Empty parking spots: %v", t.EmptySpots),
		fmt.Sprintf("Occupied parking spots: %v", t.OccupiedSpots),
		fmt.Sprintf("Vehicles in transit or parked in non-parking spots: %v", t.VehiclesInTransit),
	})
}
