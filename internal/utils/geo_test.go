package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKm(t *testing.T) {
	// Same point: the correction must not push below zero.
	assert.Zero(t, DistanceKm(27.7172, 85.3240, 27.7172, 85.3240))

	// Kathmandu to Patan, roughly 4.5 km.
	d := DistanceKm(27.7172, 85.3240, 27.6766, 85.3188)
	assert.InDelta(t, 4.5, d, 1.0)

	// One degree of latitude is about 111 km.
	d = DistanceKm(0, 0, 1, 0)
	assert.InDelta(t, 111.2, d, 0.5)

	// Symmetric.
	assert.InDelta(t,
		DistanceKm(27.7, 85.3, 27.8, 85.4),
		DistanceKm(27.8, 85.4, 27.7, 85.3),
		1e-9)
}

func TestDistanceMetersUncorrected(t *testing.T) {
	// About 55 m of latitude. The corrected distance would clamp to
	// ~35 m; the proximity form must not.
	m := DistanceMeters(27.7172, 85.3240, 27.71770, 85.3240)
	assert.InDelta(t, 55.6, m, 1.0)

	assert.Zero(t, DistanceMeters(27.7172, 85.3240, 27.7172, 85.3240))
}

func TestETAMinutes(t *testing.T) {
	assert.Equal(t, 0, ETAMinutes(0))
	// 40 km at 40 km/h is exactly an hour.
	assert.Equal(t, 60, ETAMinutes(40))
	// Partial minutes round up.
	assert.Equal(t, 2, ETAMinutes(1))
	assert.Equal(t, 8, ETAMinutes(5))
}

func TestIsValidCoordinates(t *testing.T) {
	assert.True(t, IsValidCoordinates(0, 0))
	assert.True(t, IsValidCoordinates(-90, 180))
	assert.False(t, IsValidCoordinates(90.1, 0))
	assert.False(t, IsValidCoordinates(0, -180.5))
}

func TestRoundKm(t *testing.T) {
	assert.Equal(t, 2.35, RoundKm(2.346))
	assert.Equal(t, 2.34, RoundKm(2.344))
}
