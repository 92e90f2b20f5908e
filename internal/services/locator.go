package services

import (
	"context"
	"sort"
	"sync"

	"lifeline/internal/models"
	"lifeline/internal/repositories/interfaces"
	"lifeline/internal/utils"
	"lifeline/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SnapshotEntry is one unit's last known position, kept in memory so
// the locator can answer even when the geospatial backend is down.
type SnapshotEntry struct {
	ID       primitive.ObjectID
	Name     string
	Position models.Coordinate
}

// LocatorService answers nearest-K queries for ambulances and
// hospitals. Live queries go to the Redis geo index first, then the
// MongoDB 2dsphere index; when both fail it falls back to straight-line
// distance over the last in-memory snapshot instead of failing the
// dispatch.
type LocatorService struct {
	ambulanceRepo interfaces.AmbulanceRepository
	hospitalRepo  interfaces.HospitalRepository
	cache         CacheService
	logger        *logger.Logger

	mu                sync.RWMutex
	ambulanceSnapshot map[primitive.ObjectID]SnapshotEntry
	hospitalSnapshot  map[primitive.ObjectID]SnapshotEntry
}

func NewLocatorService(
	ambulanceRepo interfaces.AmbulanceRepository,
	hospitalRepo interfaces.HospitalRepository,
	cacheService CacheService,
	log *logger.Logger,
) *LocatorService {
	return &LocatorService{
		ambulanceRepo:     ambulanceRepo,
		hospitalRepo:      hospitalRepo,
		cache:             cacheService,
		logger:            log,
		ambulanceSnapshot: make(map[primitive.ObjectID]SnapshotEntry),
		hospitalSnapshot:  make(map[primitive.ObjectID]SnapshotEntry),
	}
}

// NearestK orders a pool by straight-line distance from the origin.
// Entries with no coordinates are skipped and excluded ids are removed
// before the list is cut to k.
func NearestK(originLat, originLng float64, pool []SnapshotEntry, k int, excludeIDs []primitive.ObjectID) []models.NearbyUnit {
	excluded := make(map[primitive.ObjectID]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}

	units := make([]models.NearbyUnit, 0, len(pool))
	for _, entry := range pool {
		if excluded[entry.ID] {
			continue
		}
		if !utils.IsValidCoordinates(entry.Position.Latitude, entry.Position.Longitude) {
			continue
		}
		if entry.Position.Latitude == 0 && entry.Position.Longitude == 0 {
			continue
		}

		units = append(units, models.NearbyUnit{
			ID:   entry.ID,
			Name: entry.Name,
			DistanceKm: utils.RoundKm(utils.DistanceKm(
				originLat, originLng,
				entry.Position.Latitude, entry.Position.Longitude,
			)),
		})
	}

	sort.Slice(units, func(i, j int) bool {
		if units[i].DistanceKm != units[j].DistanceKm {
			return units[i].DistanceKm < units[j].DistanceKm
		}
		return units[i].ID.Hex() < units[j].ID.Hex()
	})

	if k > 0 && len(units) > k {
		units = units[:k]
	}
	return units
}

// RecordAmbulancePosition refreshes both the live geo index and the
// fallback snapshot for one unit.
func (s *LocatorService) RecordAmbulancePosition(ctx context.Context, id primitive.ObjectID, lat, lng float64) {
	s.mu.Lock()
	s.ambulanceSnapshot[id] = SnapshotEntry{
		ID:       id,
		Position: models.Coordinate{Latitude: lat, Longitude: lng},
	}
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.GeoAdd(ctx, utils.GeoKeyAmbulances, id.Hex(), lat, lng); err != nil {
			s.logger.WithError(err).WithAmbulanceID(id).Warn("Failed to update ambulance geo index")
		}
	}
}

// ForgetAmbulance drops a unit from the geo index and the snapshot,
// used when a unit goes out of service.
func (s *LocatorService) ForgetAmbulance(ctx context.Context, id primitive.ObjectID) {
	s.mu.Lock()
	delete(s.ambulanceSnapshot, id)
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.GeoRemove(ctx, utils.GeoKeyAmbulances, id.Hex()); err != nil {
			s.logger.WithError(err).WithAmbulanceID(id).Warn("Failed to remove ambulance from geo index")
		}
	}
}

// RecordHospitalPosition keeps the hospital snapshot current. Hospitals
// do not move; this runs on create/update and at startup warm-up.
func (s *LocatorService) RecordHospitalPosition(id primitive.ObjectID, name string, lat, lng float64) {
	s.mu.Lock()
	s.hospitalSnapshot[id] = SnapshotEntry{
		ID:       id,
		Name:     name,
		Position: models.Coordinate{Latitude: lat, Longitude: lng},
	}
	s.mu.Unlock()
}

// WarmUp loads the current fleet and hospital positions into the
// snapshot so the fallback path has data from the first request.
func (s *LocatorService) WarmUp(ctx context.Context) error {
	hospitals, err := s.hospitalRepo.List(ctx, false)
	if err != nil {
		return err
	}
	for _, h := range hospitals {
		if !h.Location.IsZero() {
			s.RecordHospitalPosition(h.ID, h.Name, h.Location.Latitude(), h.Location.Longitude())
		}
	}

	ambulances, err := s.ambulanceRepo.List(ctx)
	if err != nil {
		return err
	}
	for _, a := range ambulances {
		if a.CurrentLocation != nil && !a.CurrentLocation.IsZero() {
			s.RecordAmbulancePosition(ctx, a.ID, a.CurrentLocation.Latitude(), a.CurrentLocation.Longitude())
		}
	}
	return nil
}

// NearestIdleAmbulances returns up to k idle units ordered by distance
// from the point.
func (s *LocatorService) NearestIdleAmbulances(ctx context.Context, lat, lng float64, k int, excludeIDs []primitive.ObjectID) ([]models.NearbyUnit, error) {
	queryCtx, cancel := context.WithTimeout(ctx, utils.GeoQueryTimeout)
	defer cancel()

	ambulances, err := s.ambulanceRepo.GetNearbyIdle(queryCtx, lat, lng, utils.DefaultSearchRadiusKm, k+len(excludeIDs))
	if err == nil {
		pool := make([]SnapshotEntry, 0, len(ambulances))
		for _, a := range ambulances {
			if a.CurrentLocation == nil {
				continue
			}
			pool = append(pool, SnapshotEntry{
				ID:   a.ID,
				Name: a.CallSign,
				Position: models.Coordinate{
					Latitude:  a.CurrentLocation.Latitude(),
					Longitude: a.CurrentLocation.Longitude(),
				},
			})
		}
		return NearestK(lat, lng, pool, k, excludeIDs), nil
	}

	s.logger.WithError(err).Warn("Geo query for idle ambulances failed, using snapshot fallback")

	s.mu.RLock()
	pool := make([]SnapshotEntry, 0, len(s.ambulanceSnapshot))
	for _, entry := range s.ambulanceSnapshot {
		pool = append(pool, entry)
	}
	s.mu.RUnlock()

	return NearestK(lat, lng, pool, k, excludeIDs), nil
}

// NearestHospitals returns up to k hospitals ordered by distance from
// the point.
func (s *LocatorService) NearestHospitals(ctx context.Context, lat, lng float64, k int, excludeIDs []primitive.ObjectID) ([]models.NearbyUnit, error) {
	queryCtx, cancel := context.WithTimeout(ctx, utils.GeoQueryTimeout)
	defer cancel()

	hospitals, err := s.hospitalRepo.GetNearby(queryCtx, lat, lng, utils.DefaultSearchRadiusKm, k, excludeIDs)
	if err == nil {
		pool := make([]SnapshotEntry, 0, len(hospitals))
		for _, h := range hospitals {
			pool = append(pool, SnapshotEntry{
				ID:   h.ID,
				Name: h.Name,
				Position: models.Coordinate{
					Latitude:  h.Location.Latitude(),
					Longitude: h.Location.Longitude(),
				},
			})
		}
		return NearestK(lat, lng, pool, k, excludeIDs), nil
	}

	s.logger.WithError(err).Warn("Geo query for hospitals failed, using snapshot fallback")

	s.mu.RLock()
	pool := make([]SnapshotEntry, 0, len(s.hospitalSnapshot))
	for _, entry := range s.hospitalSnapshot {
		pool = append(pool, entry)
	}
	s.mu.RUnlock()

	return NearestK(lat, lng, pool, k, excludeIDs), nil
}
