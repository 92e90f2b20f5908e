package services

import (
	"context"
	"fmt"

	"lifeline/internal/models"
	"lifeline/internal/repositories/interfaces"
	"lifeline/internal/utils"
	"lifeline/pkg/logger"
	"lifeline/pkg/maps"
)

// MatchingService produces the ranked hospital list for a casualty
// profile and enriches it with real routing data when the provider
// answers. Results are request scoped and never persisted.
type MatchingService struct {
	hospitalRepo interfaces.HospitalRepository
	scoring      *ScoringService
	routing      maps.Provider
	logger       *logger.Logger
}

func NewMatchingService(
	hospitalRepo interfaces.HospitalRepository,
	scoring *ScoringService,
	routing maps.Provider,
	log *logger.Logger,
) *MatchingService {
	return &MatchingService{
		hospitalRepo: hospitalRepo,
		scoring:      scoring,
		routing:      routing,
		logger:       log,
	}
}

// Match ranks every available hospital for the request. The best match
// is flagged, given its route geometry, and annotated with its nearest
// neighbor hospital as the blood transfer candidate.
func (s *MatchingService) Match(ctx context.Context, req *models.MatchRequest) ([]*models.MatchResult, error) {
	if !utils.IsValidCoordinates(req.Latitude, req.Longitude) {
		return nil, fmt.Errorf("match request: %w", ErrValidation)
	}
	if req.UnitsNeeded > 0 && req.BloodType == "" {
		return nil, fmt.Errorf("blood units requested without a blood type: %w", ErrValidation)
	}
	if req.BloodType != "" && !models.ValidBloodType(req.BloodType) {
		return nil, fmt.Errorf("unknown blood type %q: %w", req.BloodType, ErrValidation)
	}

	hospitals, err := s.hospitalRepo.GetNearby(ctx, req.Latitude, req.Longitude, utils.DefaultSearchRadiusKm, 0, req.ExcludeIDs)
	if err != nil {
		s.logger.WithError(err).Warn("Nearby hospital query failed, falling back to full list")
		hospitals, err = s.hospitalRepo.List(ctx, true)
		if err != nil {
			return nil, fmt.Errorf("listing hospitals: %w", err)
		}
	}

	ranked := s.scoring.RankHospitals(hospitals, req)
	if len(ranked) == 0 {
		return nil, ErrNoCandidates
	}

	s.applyTravelTimes(ctx, req, ranked)

	best := BestHospital(ranked)
	if best != nil {
		best.IsBestMatch = true
		s.attachRoute(ctx, req, best)
		best.NearestHospital = s.nearestNeighbor(best, hospitals)
	}

	return ranked, nil
}

// BestMatch returns only the selected destination for the request.
func (s *MatchingService) BestMatch(ctx context.Context, req *models.MatchRequest) (*models.MatchResult, error) {
	ranked, err := s.Match(ctx, req)
	if err != nil {
		return nil, err
	}
	for _, r := range ranked {
		if r.IsBestMatch {
			return r, nil
		}
	}
	return nil, ErrNoCandidates
}

// applyTravelTimes replaces the straight-line ETA estimates with real
// driving durations where the matrix answers. A failed call or a
// negative element keeps the estimate.
func (s *MatchingService) applyTravelTimes(ctx context.Context, req *models.MatchRequest, ranked []*models.MatchResult) {
	if s.routing == nil || len(ranked) == 0 {
		return
	}

	destinations := make([]maps.Location, len(ranked))
	for i, r := range ranked {
		destinations[i] = maps.Location{Latitude: r.Location.Latitude, Longitude: r.Location.Longitude}
	}

	routingCtx, cancel := context.WithTimeout(ctx, utils.RoutingTimeout)
	defer cancel()

	durations, err := s.routing.TravelTimes(routingCtx, maps.Location{Latitude: req.Latitude, Longitude: req.Longitude}, destinations)
	if err != nil {
		s.logger.WithError(err).Warn("Travel time matrix failed, keeping straight-line estimates")
		return
	}

	for i, seconds := range durations {
		if i >= len(ranked) {
			break
		}
		if seconds < 0 {
			// No answer for this pair: approximate from distance.
			seconds = int(ranked[i].DistanceKm * 1000 / utils.FallbackSpeedMetersPerSec)
		}
		ranked[i].DurationMinutes = (seconds + 59) / 60
	}
}

func (s *MatchingService) attachRoute(ctx context.Context, req *models.MatchRequest, best *models.MatchResult) {
	if s.routing == nil {
		return
	}

	routingCtx, cancel := context.WithTimeout(ctx, utils.RoutingTimeout)
	defer cancel()

	route, err := s.routing.GetRoute(routingCtx,
		maps.Location{Latitude: req.Latitude, Longitude: req.Longitude},
		maps.Location{Latitude: best.Location.Latitude, Longitude: best.Location.Longitude},
	)
	if err != nil {
		s.logger.WithError(err).WithHospitalID(best.HospitalID).Warn("Route lookup failed, best match ships without geometry")
		return
	}

	geometry := make([]models.Coordinate, len(route.Geometry))
	for i, p := range route.Geometry {
		geometry[i] = models.Coordinate{Latitude: p.Latitude, Longitude: p.Longitude}
	}
	best.RouteGeometry = geometry
	if route.DurationSeconds > 0 {
		best.DurationMinutes = (route.DurationSeconds + 59) / 60
	}
}

// nearestNeighbor finds the closest other hospital to the best match by
// plain distance, regardless of score.
func (s *MatchingService) nearestNeighbor(best *models.MatchResult, hospitals []*models.Hospital) *models.NeighborHospital {
	var neighbor *models.NeighborHospital
	for _, h := range hospitals {
		if h.ID == best.HospitalID || h.Location.IsZero() {
			continue
		}
		d := utils.RoundKm(utils.DistanceKm(
			best.Location.Latitude, best.Location.Longitude,
			h.Location.Latitude(), h.Location.Longitude(),
		))
		if neighbor == nil || d < neighbor.DistanceKm {
			neighbor = &models.NeighborHospital{
				HospitalID: h.ID,
				Name:       h.Name,
				Phone:      h.Phone,
				DistanceKm: d,
			}
		}
	}
	return neighbor
}
