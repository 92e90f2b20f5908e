package services

import (
	"context"
	"testing"

	"lifeline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func snapshotEntry(lat, lng float64) SnapshotEntry {
	return SnapshotEntry{
		ID:       primitive.NewObjectID(),
		Position: models.Coordinate{Latitude: lat, Longitude: lng},
	}
}

func TestNearestKOrdersAscending(t *testing.T) {
	origin := models.Coordinate{Latitude: 27.7172, Longitude: 85.3240}

	far := snapshotEntry(27.80, 85.32)
	near := snapshotEntry(27.72, 85.32)
	mid := snapshotEntry(27.75, 85.32)

	units := NearestK(origin.Latitude, origin.Longitude, []SnapshotEntry{far, near, mid}, 10, nil)
	require.Len(t, units, 3)
	assert.Equal(t, near.ID, units[0].ID)
	assert.Equal(t, mid.ID, units[1].ID)
	assert.Equal(t, far.ID, units[2].ID)

	for i := 1; i < len(units); i++ {
		assert.GreaterOrEqual(t, units[i].DistanceKm, units[i-1].DistanceKm)
	}
}

func TestNearestKTruncatesAfterExclusion(t *testing.T) {
	origin := models.Coordinate{Latitude: 27.7172, Longitude: 85.3240}

	nearest := snapshotEntry(27.718, 85.324)
	second := snapshotEntry(27.72, 85.324)
	third := snapshotEntry(27.73, 85.324)

	// With the nearest excluded, k=2 must still return two entries.
	units := NearestK(origin.Latitude, origin.Longitude,
		[]SnapshotEntry{nearest, second, third}, 2,
		[]primitive.ObjectID{nearest.ID})

	require.Len(t, units, 2)
	assert.Equal(t, second.ID, units[0].ID)
	assert.Equal(t, third.ID, units[1].ID)
	for _, u := range units {
		assert.NotEqual(t, nearest.ID, u.ID)
	}
}

func TestNearestKSkipsMissingCoordinates(t *testing.T) {
	origin := models.Coordinate{Latitude: 27.7172, Longitude: 85.3240}

	positioned := snapshotEntry(27.72, 85.32)
	unpositioned := snapshotEntry(0, 0)

	units := NearestK(origin.Latitude, origin.Longitude, []SnapshotEntry{unpositioned, positioned}, 10, nil)
	require.Len(t, units, 1)
	assert.Equal(t, positioned.ID, units[0].ID)
}

func TestNearestKNeverExceedsK(t *testing.T) {
	origin := models.Coordinate{Latitude: 27.7172, Longitude: 85.3240}

	pool := make([]SnapshotEntry, 0, 12)
	for i := 0; i < 12; i++ {
		pool = append(pool, snapshotEntry(27.70+float64(i)*0.01, 85.32))
	}

	assert.Len(t, NearestK(origin.Latitude, origin.Longitude, pool, 5, nil), 5)
	assert.Len(t, NearestK(origin.Latitude, origin.Longitude, pool, 20, nil), 12)
	assert.Empty(t, NearestK(origin.Latitude, origin.Longitude, nil, 5, nil))
}

func TestLocatorSnapshotFallback(t *testing.T) {
	// Repositories that always fail force the snapshot path.
	svc := NewLocatorService(&failingAmbulanceRepo{}, &failingHospitalRepo{}, nil, testLogger(t))

	a1 := primitive.NewObjectID()
	a2 := primitive.NewObjectID()
	svc.RecordAmbulancePosition(context.Background(), a1, 27.72, 85.324)
	svc.RecordAmbulancePosition(context.Background(), a2, 27.80, 85.324)

	units, err := svc.NearestIdleAmbulances(context.Background(), 27.7172, 85.3240, 5, nil)
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, a1, units[0].ID)

	h1 := primitive.NewObjectID()
	svc.RecordHospitalPosition(h1, "City Hospital", 27.73, 85.32)

	hospitals, err := svc.NearestHospitals(context.Background(), 27.7172, 85.3240, 5, nil)
	require.NoError(t, err)
	require.Len(t, hospitals, 1)
	assert.Equal(t, h1, hospitals[0].ID)
	assert.Equal(t, "City Hospital", hospitals[0].Name)
}

func TestLocatorForgetAmbulance(t *testing.T) {
	svc := NewLocatorService(&failingAmbulanceRepo{}, &failingHospitalRepo{}, nil, testLogger(t))

	id := primitive.NewObjectID()
	svc.RecordAmbulancePosition(context.Background(), id, 27.72, 85.324)
	svc.ForgetAmbulance(context.Background(), id)

	units, err := svc.NearestIdleAmbulances(context.Background(), 27.7172, 85.3240, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, units)
}
