// Package occupancy decides whether a parking spot is occupied by a vehicle,
// by comparing the spot's rectangle against every vehicle in the same image.
package occupancy

import (
	flatbush "github.com/bmharper/flatbush-go"
	"github.com/cyclopcam/parkinglot/pkg/nn"
)

// Match is the result of evaluating one spot
type Match struct {
	Occupied bool
	Vehicle  int     // Index into Evaluator.Vehicles of the best overlapping vehicle, or -1 if nothing overlaps
	IoU      float64 // IoU of the best overlapping vehicle
}

// Evaluator holds the vehicles of one image, in pixel coordinates
type Evaluator struct {
	Vehicles []nn.Rect
	index    *flatbush.Flatbush[int32]
}

// IoU of two pixel rectangles. Returns 0 if the union has no area.
func IoU(a, b nn.Rect) float64 {
	return a.IOU(b)
}

// Create an evaluator from all of the boxes of an image.
// Only vehicle boxes are retained.
func NewEvaluator(imgWidth, imgHeight int, boxes []nn.Box) *Evaluator {
	e := &Evaluator{}
	for _, b := range boxes {
		if b.Class == nn.ClassVehicle {
			e.Vehicles = append(e.Vehicles, b.ToRect(imgWidth, imgHeight))
		}
	}
	if len(e.Vehicles) == 0 {
		return e
	}

	// Spatial index so that each spot is only compared against nearby vehicles
	e.index = flatbush.NewFlatbush[int32]()
	e.index.Reserve(len(e.Vehicles))
	for _, v := range e.Vehicles {
		e.index.Add(int32(v.X), int32(v.Y), int32(v.X2()), int32(v.Y2()))
	}
	e.index.Finish()
	return e
}

// Find the vehicle with the highest IoU against spot.
// The spot is occupied if that IoU is strictly greater than threshold.
func (e *Evaluator) Evaluate(spot nn.Rect, threshold float64) Match {
	m := Match{Vehicle: -1}
	if e.index == nil {
		return m
	}
	for _, i := range e.index.Search(int32(spot.X), int32(spot.Y), int32(spot.X2()), int32(spot.Y2())) {
		iou := spot.IOU(e.Vehicles[i])
		if iou > m.IoU {
			m.IoU = iou
			m.Vehicle = i
		}
	}
	m.Occupied = m.Vehicle != -1 && m.IoU > threshold
	return m
}

func (e *Evaluator) IsOccupied(spot nn.Rect, threshold float64) bool {
	return e.Evaluate(spot, threshold).Occupied
}

// IsOccupied is a convenience wrapper for evaluating a single spot.
// When evaluating many spots from the same image, create one Evaluator and reuse it.
func IsOccupied(imgWidth, imgHeight int, boxes []nn.Box, spot nn.Rect, threshold float64) bool {
	return NewEvaluator(imgWidth, imgHeight, boxes).IsOccupied(spot, threshold)
}
