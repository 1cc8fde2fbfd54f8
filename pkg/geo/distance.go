package geo

import "math"

const (
	// single earth radius constant for every distance/projection in this
	// package. Mixing radii would skew the snap & trigger thresholds that
	// are all expressed in meter.
	earthRadiusM = 6371000.0
)

func havFunction(angleRad float64) float64 {
	return (1 - math.Cos(angleRad)) / 2.0
}

func degreeToRadians(angle float64) float64 {
	return angle * (math.Pi / 180.0)
}

func radiansToDegree(angle float64) float64 {
	return angle * (180.0 / math.Pi)
}

// CalculateHaversineDistance returns the great-circle distance between two
// points in meter.
func CalculateHaversineDistance(latOne, longOne, latTwo, longTwo float64) float64 {
	latOne = degreeToRadians(latOne)
	longOne = degreeToRadians(longOne)
	latTwo = degreeToRadians(latTwo)
	longTwo = degreeToRadians(longTwo)

	a := havFunction(latOne-latTwo) + math.Cos(latOne)*math.Cos(latTwo)*havFunction(longOne-longTwo)
	c := 2.0 * math.Asin(math.Sqrt(a))
	return earthRadiusM * c
}

// CalculateInitialBearing returns the forward azimuth from the first point to
// the second in degrees [0,360). Identical points give 0.
func CalculateInitialBearing(latOne, longOne, latTwo, longTwo float64) float64 {
	latOne = degreeToRadians(latOne)
	latTwo = degreeToRadians(latTwo)
	deltaLong := degreeToRadians(longTwo - longOne)

	y := math.Sin(deltaLong) * math.Cos(latTwo)
	x := math.Cos(latOne)*math.Sin(latTwo) - math.Sin(latOne)*math.Cos(latTwo)*math.Cos(deltaLong)

	bearing := radiansToDegree(math.Atan2(y, x))
	return math.Mod(bearing+360.0, 360.0)
}
