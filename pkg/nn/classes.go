package nn

// Class ids of the parking lot dataset
const (
	ClassVehicle        = 0
	ClassAccessibleSpot = 1
	ClassSpot           = 2
)

// Parking lot classes, indexed by class id
var ParkingClasses = []string{
	"vehicle",
	"accessible parking spot",
	"parking spot",
}

// Returns true if the class is one of the two parking spot classes
func IsSpotClass(cls int) bool {
	return cls == ClassAccessibleSpot || cls == ClassSpot
}
