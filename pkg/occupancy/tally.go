package occupancy

import (
	"strconv"

	"github.com/cyclopcam/parkinglot/pkg/nn"
)

// Tally is the per-image summary of spots and vehicles
type Tally struct {
	ImageFile          string `json:"imageFile"`
	AccessibleSpots    int    `json:"accessibleSpots"`
	Spots              int    `json:"spots"`
	Vehicles           int    `json:"vehicles"`
	EmptyAccessible    int    `json:"emptyAccessible"`
	OccupiedAccessible int    `json:"occupiedAccessible"`
	EmptySpots         int    `json:"emptySpots"`
	OccupiedSpots      int    `json:"occupiedSpots"`
	VehiclesInTransit  int    `json:"vehiclesInTransit"` // Vehicles that are not the best match of any occupied spot
}

// CSV column headers, in the same order as Tally.Record
var TallyHeader = []string{
	"Image File",
	"Accessible parking spots",
	"Parking spots",
	"Vehicles",
	"Empty accessible parking spots",
	"Occupied accessible parking spots",
	"Empty parking spots",
	"Occupied parking spots",
	"Vehicles in transit or parked in non-parking spots",
}

// Record returns the tally as a CSV row
func (t *Tally) Record() []string {
	return []string{
		t.ImageFile,
		strconv.Itoa(t.AccessibleSpots),
		strconv.Itoa(t.Spots),
		strconv.Itoa(t.Vehicles),
		strconv.Itoa(t.EmptyAccessible),
		strconv.Itoa(t.OccupiedAccessible),
		strconv.Itoa(t.EmptySpots),
		strconv.Itoa(t.OccupiedSpots),
		strconv.Itoa(t.VehiclesInTransit),
	}
}

// Annotation is one box of an image, after occupancy has been decided
type Annotation struct {
	Box      nn.Box
	Rect     nn.Rect // Pixel rectangle
	Occupied bool    // Only meaningful for spot classes
}

// Assess evaluates every spot in the image against the image's vehicles.
// The returned annotations are in the same order as boxes.
func Assess(imgWidth, imgHeight int, boxes []nn.Box, threshold float64) ([]Annotation, Tally) {
	ev := NewEvaluator(imgWidth, imgHeight, boxes)
	tally := Tally{}
	annotations := make([]Annotation, 0, len(boxes))
	matched := map[int]bool{}

	for _, b := range boxes {
		a := Annotation{
			Box:  b,
			Rect: b.ToRect(imgWidth, imgHeight),
		}
		switch b.Class {
		case nn.ClassVehicle:
			tally.Vehicles++
		case nn.ClassAccessibleSpot, nn.ClassSpot:
			m := ev.Evaluate(a.Rect, threshold)
			a.Occupied = m.Occupied
			if m.Occupied {
				matched[m.Vehicle] = true
			}
			if b.Class == nn.ClassAccessibleSpot {
				tally.AccessibleSpots++
				if m.Occupied {
					tally.OccupiedAccessible++
				} else {
					tally.EmptyAccessible++
				}
			} else {
				tally.Spots++
				if m.Occupied {
					tally.OccupiedSpots++
				} else {
					tally.EmptySpots++
				}
			}
		}
		annotations = append(annotations, a)
	}

	tally.VehiclesInTransit = max(0, tally.Vehicles-len(matched))
	return annotations, tally
}
