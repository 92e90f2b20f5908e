package services

import (
	"math"
	"sort"
	"strings"

	"lifeline/internal/models"
	"lifeline/internal/utils"
)

// ScoreWeights are the relative weights of the four ranking criteria.
// They sum to 1.
type ScoreWeights struct {
	Blood      float64
	Specialist float64
	Distance   float64
	Beds       float64
}

func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		Blood:      0.4,
		Specialist: 0.3,
		Distance:   0.2,
		Beds:       0.1,
	}
}

// SpecialtyLookup maps a free-text injury description to the staff role
// a receiving hospital should have on duty.
type SpecialtyLookup interface {
	SpecialistFor(injuryType string) string
}

const defaultSpecialist = "Emergency Medicine Specialist"

// keyword table for the free-text injury description; the longest
// matching keyword wins.
var specialtyRules = map[string]string{
	"head injury":   "Neurologist",
	"head trauma":   "Neurologist",
	"brain injury":  "Neurologist",
	"cardiac":       "Cardiologist",
	"heart attack":  "Cardiologist",
	"chest pain":    "Cardiologist",
	"fracture":      "Orthopedic Surgeon",
	"bone injury":   "Orthopedic Surgeon",
	"broken bone":   "Orthopedic Surgeon",
	"spinal injury": "Orthopedic Surgeon",
	"burn":          "General Surgeon",
	"burns":         "General Surgeon",
	"trauma":        "General Surgeon",
	"accident":      "Emergency Medicine Specialist",
	"emergency":     "Emergency Medicine Specialist",
	"respiratory":   "Pulmonologist",
	"breathing":     "Pulmonologist",
	"pediatric":     "Pediatrician",
	"child":         "Pediatrician",
	"pregnancy":     "Gynecologist",
	"maternity":     "Gynecologist",
	"eye injury":    "Ophthalmologist",
	"stomach":       "Gastroenterologist",
	"abdominal":     "Gastroenterologist",
	"kidney":        "Nephrologist",
	"skin":          "Dermatologist",
	"mental":        "Psychiatrist",
	"ear":           "ENT Specialist",
	"throat":        "ENT Specialist",
	"nose":          "ENT Specialist",
}

type keywordSpecialtyLookup struct{}

// NewSpecialtyLookup returns the keyword table matcher. Unknown injury
// descriptions map to the general emergency specialist.
func NewSpecialtyLookup() SpecialtyLookup {
	return keywordSpecialtyLookup{}
}

func (keywordSpecialtyLookup) SpecialistFor(injuryType string) string {
	injury := strings.ToLower(strings.TrimSpace(injuryType))
	if injury == "" {
		return defaultSpecialist
	}

	// Longest matching keyword wins, so "head trauma" resolves to the
	// neurologist rule rather than the generic trauma one.
	best := ""
	specialist := defaultSpecialist
	for keyword, role := range specialtyRules {
		if strings.Contains(injury, keyword) && len(keyword) > len(best) {
			best = keyword
			specialist = role
		}
	}
	return specialist
}

// ScoringService ranks hospitals against one casualty profile. It is
// pure computation: no I/O, safe for concurrent use.
type ScoringService struct {
	weights     ScoreWeights
	specialties SpecialtyLookup
}

func NewScoringService(specialties SpecialtyLookup) *ScoringService {
	return &ScoringService{
		weights:     DefaultScoreWeights(),
		specialties: specialties,
	}
}

// BloodScore grades stock against need: full marks when nothing is
// needed or the stock covers it, proportional below that, zero with an
// empty shelf.
func BloodScore(available, needed float64) int {
	if needed <= 0 {
		return 100
	}
	if available <= 0 {
		return 0
	}
	return int(math.Round(math.Min(1, available/needed) * 100))
}

// SpecialistScore grades headcount of the required role in tiers.
func SpecialistScore(count int) int {
	switch {
	case count >= 3:
		return 100
	case count == 2:
		return 80
	case count == 1:
		return 50
	default:
		return 0
	}
}

// DistanceScore decays linearly from 100 at one kilometer or less to 0
// at the search radius and beyond.
func DistanceScore(distanceKm float64) int {
	if distanceKm <= 1 {
		return 100
	}
	if distanceKm >= utils.DefaultSearchRadiusKm {
		return 0
	}
	return int(math.Round(100 - distanceKm/utils.DefaultSearchRadiusKm*100))
}

// BedsScore grades free capacity in tiers.
func BedsScore(beds int) int {
	switch {
	case beds >= 20:
		return 100
	case beds >= 10:
		return 70
	case beds >= 5:
		return 40
	case beds >= 1:
		return 20
	default:
		return 0
	}
}

// Score computes the weighted total for one hospital. A request with
// no blood need scores the blood criterion at full marks for every
// candidate, so the other three criteria decide the ranking.
func (s *ScoringService) Score(hospital *models.Hospital, req *models.MatchRequest, distanceKm float64) models.HospitalScores {
	specialist := s.specialties.SpecialistFor(req.InjuryType)

	scores := models.HospitalScores{
		Blood:      100,
		Specialist: SpecialistScore(hospital.StaffCount[specialist]),
		Distance:   DistanceScore(distanceKm),
		Beds:       BedsScore(hospital.BedsAvailable),
	}
	if req.NeedsBlood() {
		scores.Blood = BloodScore(hospital.AvailableUnits(req.BloodType), req.UnitsNeeded)
	}

	total := s.weights.Blood*float64(scores.Blood) +
		s.weights.Specialist*float64(scores.Specialist) +
		s.weights.Distance*float64(scores.Distance) +
		s.weights.Beds*float64(scores.Beds)
	scores.Total = math.Round(total*100) / 100

	return scores
}

// RankHospitals scores every candidate and orders them best first.
// Ties break on distance, then on hospital id for a stable order.
func (s *ScoringService) RankHospitals(hospitals []*models.Hospital, req *models.MatchRequest) []*models.MatchResult {
	specialist := s.specialties.SpecialistFor(req.InjuryType)

	results := make([]*models.MatchResult, 0, len(hospitals))
	for _, h := range hospitals {
		if !h.IsAvailable {
			continue
		}

		distance := utils.RoundKm(utils.DistanceKm(
			req.Latitude, req.Longitude,
			h.Location.Latitude(), h.Location.Longitude(),
		))

		results = append(results, &models.MatchResult{
			HospitalID:    h.ID,
			Name:          h.Name,
			Address:       h.Address,
			Phone:         h.Phone,
			Location:      models.Coordinate{Latitude: h.Location.Latitude(), Longitude: h.Location.Longitude()},
			BedsAvailable: h.BedsAvailable,
			Scores:        s.Score(h, req, distance),
			DistanceKm:    distance,
			// Straight-line estimate, replaced when routing answers.
			DurationMinutes:    utils.ETAMinutes(distance),
			RequiredSpecialist: specialist,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Scores.Total != results[j].Scores.Total {
			return results[i].Scores.Total > results[j].Scores.Total
		}
		if results[i].DistanceKm != results[j].DistanceKm {
			return results[i].DistanceKm < results[j].DistanceKm
		}
		return results[i].HospitalID.Hex() < results[j].HospitalID.Hex()
	})

	return results
}

// BestHospital picks the destination from a ranked list: the highest
// scorer that still has a free bed. Nil when no candidate has one.
func BestHospital(ranked []*models.MatchResult) *models.MatchResult {
	for _, r := range ranked {
		if r.BedsAvailable > 0 {
			return r
		}
	}
	return nil
}
