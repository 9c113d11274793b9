package engine

import (
	stdmath "math"

	"github.com/Faultbox/lightbake/pkg/math"
)

// SunDirection converts longitude/latitude angles in degrees to a unit vector
// pointing towards the sun. Longitude rotates around +Y starting at +Z,
// latitude is the elevation above the horizon (90 is straight up).
func SunDirection(longitude, latitude float32) math.Vec3 {
	lonRad := float64(longitude) * stdmath.Pi / 180.0
	latRad := float64(latitude) * stdmath.Pi / 180.0

	return math.Vec3{
		X: float32(stdmath.Cos(latRad) * stdmath.Sin(lonRad)),
		Y: float32(stdmath.Sin(latRad)),
		Z: float32(stdmath.Cos(latRad) * stdmath.Cos(lonRad)),
	}.Normalize()
}
