package domain

import "math"

// EarthRadiusMeters is the mean Earth radius used by DistanceMeters.
const EarthRadiusMeters = 6371000.0

// DefaultRouteThreshold is the vertex proximity, in degrees, used by IsOnRoute.
const DefaultRouteThreshold = 0.002

var compassPoints = [8]string{"north", "northeast", "east", "southeast", "south", "southwest", "west", "northwest"}

// DistanceMeters returns the great-circle distance between two points using the haversine formula.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	dPhi := radians(lat2 - lat1)
	dLambda := radians(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// Bearing returns the initial bearing from point 1 to point 2 in degrees, normalized to [0, 360).
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	dLon := radians(lon2 - lon1)
	x := math.Cos(radians(lat2)) * math.Sin(dLon)
	y := math.Cos(radians(lat1))*math.Sin(radians(lat2)) -
		math.Sin(radians(lat1))*math.Cos(radians(lat2))*math.Cos(dLon)

	return math.Mod(degrees(math.Atan2(x, y))+360, 360)
}

// CompassDirection returns the 8-point compass direction from point 1 to point 2.
func CompassDirection(lat1, lon1, lat2, lon2 float64) string {
	return DirectionForBearing(Bearing(lat1, lon1, lat2, lon2))
}

// DirectionForBearing buckets a bearing into the nearest 45° compass point.
// Exact sector midpoints round half to even; bearings that round up to 360 wrap to north.
func DirectionForBearing(bearing float64) string {
	idx := int(math.RoundToEven(bearing/45)) % 8
	if idx < 0 {
		idx += 8
	}
	return compassPoints[idx]
}

// IsOnRoute reports whether any route vertex lies strictly within threshold
// degrees of point. Both point and vertices are [lon, lat].
func IsOnRoute(point [2]float64, coordinates [][2]float64, threshold float64) bool {
	for _, c := range coordinates {
		dx := c[0] - point[0]
		dy := c[1] - point[1]
		if math.Sqrt(dx*dx+dy*dy) < threshold {
			return true
		}
	}
	return false
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
