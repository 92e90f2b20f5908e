package utils

import (
	"math"
)

const (
	earthRadiusKm = 6371.0

	// Haversine systematically overestimates against road distance in
	// dense areas; measurements settled on a flat 20 m correction.
	haversineCorrectionKm = 0.02

	// Urban average for an ambulance, used only when the routing
	// service cannot answer.
	averageSpeedKmh = 40.0
)

func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// DistanceKm returns the great-circle distance between two points in
// kilometers, corrected by 20 m and clamped at zero.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	return math.Max(0, haversineKm(lat1, lon1, lat2, lon2)-haversineCorrectionKm)
}

// DistanceMeters is the uncorrected great-circle distance in meters.
// Proximity checks use this, the road correction would widen the
// trigger radius.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	return haversineKm(lat1, lon1, lat2, lon2) * 1000
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := DegToRad(lat1)
	lat2Rad := DegToRad(lat2)
	dLat := DegToRad(lat2 - lat1)
	dLon := DegToRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// ETAMinutes estimates travel time at the urban average speed, rounded
// up to whole minutes. A fallback for when routing is unavailable.
func ETAMinutes(distanceKm float64) int {
	return int(math.Ceil(distanceKm / averageSpeedKmh * 60))
}

func IsValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// RoundKm rounds a distance to two decimal places for display.
func RoundKm(km float64) float64 {
	return math.Round(km*100) / 100
}
