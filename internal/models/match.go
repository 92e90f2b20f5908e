package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MatchRequest carries the casualty attributes a hospital ranking runs
// against. BloodType and InjuryType are optional; coordinates are not.
type MatchRequest struct {
	Latitude    float64              `json:"latitude"`
	Longitude   float64              `json:"longitude"`
	InjuryType  string               `json:"injury_type,omitempty"`
	BloodType   BloodType            `json:"blood_type,omitempty"`
	UnitsNeeded float64              `json:"units_needed,omitempty"`
	ExcludeIDs  []primitive.ObjectID `json:"exclude_ids,omitempty"`
}

// NeedsBlood reports whether blood availability should influence the
// ranking at all.
func (r *MatchRequest) NeedsBlood() bool {
	return r.BloodType != "" && r.UnitsNeeded > 0
}

// HospitalScores holds the per-criterion sub-scores, each in [0,100],
// and their weighted total.
type HospitalScores struct {
	Blood      int     `json:"blood"`
	Specialist int     `json:"specialist"`
	Distance   int     `json:"distance"`
	Beds       int     `json:"beds"`
	Total      float64 `json:"total"`
}

// MatchResult is request scoped. It is produced per ranking run,
// handed to the fan-out and the caller, and never persisted.
type MatchResult struct {
	HospitalID         primitive.ObjectID `json:"hospital_id"`
	Name               string             `json:"name"`
	Address            string             `json:"address,omitempty"`
	Phone              string             `json:"phone,omitempty"`
	Location           Coordinate         `json:"location"`
	BedsAvailable      int                `json:"beds_available"`
	Scores             HospitalScores     `json:"scores"`
	DistanceKm         float64            `json:"distance_km"`
	DurationMinutes    int                `json:"duration_minutes"`
	RequiredSpecialist string             `json:"required_specialist"`
	IsBestMatch        bool               `json:"is_best_match"`
	// RouteGeometry is populated for the best match only.
	RouteGeometry []Coordinate `json:"route_geometry,omitempty"`
	// NearestHospital is the best match's nearest neighbor, attached as
	// the blood transfer candidate when the primary runs short.
	NearestHospital *NeighborHospital `json:"nearest_hospital_for_blood,omitempty"`
}

type NeighborHospital struct {
	HospitalID primitive.ObjectID `json:"hospital_id"`
	Name       string             `json:"name"`
	Phone      string             `json:"phone,omitempty"`
	DistanceKm float64            `json:"distance_km"`
}

// NearbyUnit is one entry of a nearest-K locator answer, ascending by
// distance from the query origin.
type NearbyUnit struct {
	ID         primitive.ObjectID `json:"id"`
	Name       string             `json:"name,omitempty"`
	DistanceKm float64            `json:"distance_km"`
}
