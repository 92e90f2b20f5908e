package services

import (
	"testing"

	"lifeline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBloodScore(t *testing.T) {
	tests := []struct {
		name      string
		available float64
		needed    float64
		want      int
	}{
		{"no need scores full", 0, 0, 100},
		{"no need ignores inventory", 50, 0, 100},
		{"empty shelf", 0, 10, 0},
		{"full coverage", 20, 10, 100},
		{"exact coverage", 10, 10, 100},
		{"partial coverage", 5, 10, 50},
		{"partial rounds", 1, 3, 33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BloodScore(tt.available, tt.needed))
		})
	}
}

func TestSpecialistScore(t *testing.T) {
	assert.Equal(t, 100, SpecialistScore(3))
	assert.Equal(t, 100, SpecialistScore(7))
	assert.Equal(t, 80, SpecialistScore(2))
	assert.Equal(t, 50, SpecialistScore(1))
	assert.Equal(t, 0, SpecialistScore(0))
}

func TestDistanceScore(t *testing.T) {
	assert.Equal(t, 100, DistanceScore(0))
	assert.Equal(t, 100, DistanceScore(1))
	assert.Equal(t, 96, DistanceScore(2))
	assert.Equal(t, 50, DistanceScore(25))
	assert.Equal(t, 0, DistanceScore(50))
	assert.Equal(t, 0, DistanceScore(120))

	// Monotonically non-increasing with distance.
	prev := 100
	for d := 0.0; d <= 60; d += 0.5 {
		score := DistanceScore(d)
		assert.LessOrEqual(t, score, prev, "distance %.1f", d)
		assert.GreaterOrEqual(t, score, 0)
		assert.LessOrEqual(t, score, 100)
		prev = score
	}
}

func TestBedsScore(t *testing.T) {
	assert.Equal(t, 100, BedsScore(20))
	assert.Equal(t, 70, BedsScore(10))
	assert.Equal(t, 40, BedsScore(5))
	assert.Equal(t, 20, BedsScore(1))
	assert.Equal(t, 0, BedsScore(0))
}

func TestSpecialtyLookup(t *testing.T) {
	lookup := NewSpecialtyLookup()

	assert.Equal(t, "Cardiologist", lookup.SpecialistFor("cardiac arrest"))
	assert.Equal(t, "Cardiologist", lookup.SpecialistFor("Heart Attack"))
	assert.Equal(t, "General Surgeon", lookup.SpecialistFor("severe burns"))
	assert.Equal(t, "Orthopedic Surgeon", lookup.SpecialistFor("leg fracture"))
	assert.Equal(t, "Pulmonologist", lookup.SpecialistFor("difficulty breathing"))
	// "head trauma" holds both the trauma and the head trauma keyword;
	// the longer one decides.
	assert.Equal(t, "Neurologist", lookup.SpecialistFor("head trauma"))
	assert.Equal(t, "Emergency Medicine Specialist", lookup.SpecialistFor("unknown condition"))
	assert.Equal(t, "Emergency Medicine Specialist", lookup.SpecialistFor(""))
}

// Two hospitals equidistant at 2 km. A carries the blood, B carries the
// cardiologists; the 0.4 blood weight against 0.3 specialist weight must
// rank A first.
func TestRankHospitalsBloodOutweighsSpecialist(t *testing.T) {
	svc := NewScoringService(NewSpecialtyLookup())

	origin := models.Coordinate{Latitude: 40.7128, Longitude: -74.0060}
	// About 2 km due north of the origin.
	hospitalLat := origin.Latitude + 0.0182

	hospitalA := &models.Hospital{
		ID:             primitive.NewObjectID(),
		Name:           "Hospital A",
		Location:       models.NewLocation(hospitalLat, origin.Longitude),
		BedsAvailable:  50,
		BloodInventory: map[models.BloodType]float64{models.BloodTypeOPositive: 20},
		StaffCount:     map[string]int{"Cardiologist": 0},
		IsAvailable:    true,
	}
	hospitalB := &models.Hospital{
		ID:             primitive.NewObjectID(),
		Name:           "Hospital B",
		Location:       models.NewLocation(hospitalLat, origin.Longitude),
		BedsAvailable:  5,
		BloodInventory: map[models.BloodType]float64{},
		StaffCount:     map[string]int{"Cardiologist": 3},
		IsAvailable:    true,
	}

	req := &models.MatchRequest{
		Latitude:    origin.Latitude,
		Longitude:   origin.Longitude,
		InjuryType:  "cardiac",
		BloodType:   models.BloodTypeOPositive,
		UnitsNeeded: 10,
	}

	ranked := svc.RankHospitals([]*models.Hospital{hospitalB, hospitalA}, req)
	require.Len(t, ranked, 2)

	first, second := ranked[0], ranked[1]
	assert.Equal(t, hospitalA.ID, first.HospitalID)
	assert.Equal(t, hospitalB.ID, second.HospitalID)

	assert.Equal(t, 100, first.Scores.Blood)
	assert.Equal(t, 0, first.Scores.Specialist)
	assert.Equal(t, 96, first.Scores.Distance)
	assert.Equal(t, 100, first.Scores.Beds)
	assert.InDelta(t, 69.2, first.Scores.Total, 0.001)

	assert.Equal(t, 0, second.Scores.Blood)
	assert.Equal(t, 100, second.Scores.Specialist)
	assert.Equal(t, 96, second.Scores.Distance)
	assert.Equal(t, 40, second.Scores.Beds)
	assert.InDelta(t, 53.2, second.Scores.Total, 0.001)
}

func TestRankHospitalsSkipsUnavailable(t *testing.T) {
	svc := NewScoringService(NewSpecialtyLookup())

	offline := &models.Hospital{
		ID:          primitive.NewObjectID(),
		Name:        "Closed",
		Location:    models.NewLocation(40.72, -74.00),
		IsAvailable: false,
	}
	open := &models.Hospital{
		ID:            primitive.NewObjectID(),
		Name:          "Open",
		Location:      models.NewLocation(40.73, -74.00),
		BedsAvailable: 3,
		IsAvailable:   true,
	}

	ranked := svc.RankHospitals([]*models.Hospital{offline, open}, &models.MatchRequest{
		Latitude:  40.7128,
		Longitude: -74.0060,
	})

	require.Len(t, ranked, 1)
	assert.Equal(t, open.ID, ranked[0].HospitalID)
}

func TestRankHospitalsTieBreaksOnDistance(t *testing.T) {
	svc := NewScoringService(NewSpecialtyLookup())

	// Identical capability profiles, different distances.
	near := &models.Hospital{
		ID:            primitive.NewObjectID(),
		Name:          "Near",
		Location:      models.NewLocation(40.72, -74.0060),
		BedsAvailable: 10,
		IsAvailable:   true,
	}
	far := &models.Hospital{
		ID:            primitive.NewObjectID(),
		Name:          "Far",
		Location:      models.NewLocation(40.76, -74.0060),
		BedsAvailable: 10,
		IsAvailable:   true,
	}

	req := &models.MatchRequest{Latitude: 40.7128, Longitude: -74.0060}

	ranked := svc.RankHospitals([]*models.Hospital{far, near}, req)
	require.Len(t, ranked, 2)

	if ranked[0].Scores.Total == ranked[1].Scores.Total {
		assert.LessOrEqual(t, ranked[0].DistanceKm, ranked[1].DistanceKm)
	} else {
		assert.Greater(t, ranked[0].Scores.Total, ranked[1].Scores.Total)
	}
}

func TestBestHospitalRequiresFreeBed(t *testing.T) {
	full := &models.MatchResult{HospitalID: primitive.NewObjectID(), BedsAvailable: 0, Scores: models.HospitalScores{Total: 90}}
	open := &models.MatchResult{HospitalID: primitive.NewObjectID(), BedsAvailable: 2, Scores: models.HospitalScores{Total: 60}}

	best := BestHospital([]*models.MatchResult{full, open})
	require.NotNil(t, best)
	assert.Equal(t, open.HospitalID, best.HospitalID)

	assert.Nil(t, BestHospital([]*models.MatchResult{full}))
	assert.Nil(t, BestHospital(nil))
}

func TestScoreTotalWithinBounds(t *testing.T) {
	svc := NewScoringService(NewSpecialtyLookup())

	hospitals := []*models.Hospital{
		{BloodInventory: map[models.BloodType]float64{models.BloodTypeAPositive: 3}, StaffCount: map[string]int{"Trauma Surgeon": 2}, BedsAvailable: 8},
		{BedsAvailable: 0},
		{BloodInventory: map[models.BloodType]float64{}, StaffCount: map[string]int{}, BedsAvailable: 100},
	}
	requests := []*models.MatchRequest{
		{},
		{BloodType: models.BloodTypeAPositive, UnitsNeeded: 6, InjuryType: "stab wound"},
		{InjuryType: "burn"},
	}

	for _, h := range hospitals {
		for _, req := range requests {
			for _, d := range []float64{0, 1.5, 25, 49, 80} {
				scores := svc.Score(h, req, d)
				for _, sub := range []int{scores.Blood, scores.Specialist, scores.Distance, scores.Beds} {
					assert.GreaterOrEqual(t, sub, 0)
					assert.LessOrEqual(t, sub, 100)
				}
				assert.GreaterOrEqual(t, scores.Total, 0.0)
				assert.LessOrEqual(t, scores.Total, 100.0)
			}
		}
	}
}
