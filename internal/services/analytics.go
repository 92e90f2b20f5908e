package services

import (
	"context"

	"lifeline/internal/models"
	"lifeline/internal/repositories/interfaces"
	"lifeline/pkg/logger"
	"lifeline/pkg/websocket"
)

// FleetSnapshot is the dispatcher dashboard summary.
type FleetSnapshot struct {
	ActiveIncidents     int64            `json:"active_incidents"`
	UnitsByStatus       map[string]int64 `json:"units_by_status"`
	AvailableUnits      int64            `json:"available_units"`
	ConnectedClients    int              `json:"connected_clients"`
	Hospitals           int              `json:"hospitals"`
	HospitalsOnline     int              `json:"hospitals_online"`
	TotalBedsAvailable  int              `json:"total_beds_available"`
	HospitalsAtCapacity int              `json:"hospitals_at_capacity"`
}

// AnalyticsService aggregates live counts for the dashboard. Numbers
// are read-time snapshots, not synchronized across the queries.
type AnalyticsService struct {
	incidentRepo  interfaces.IncidentRepository
	ambulanceRepo interfaces.AmbulanceRepository
	hospitalRepo  interfaces.HospitalRepository
	hub           *websocket.Hub
	logger        *logger.Logger
}

func NewAnalyticsService(
	incidentRepo interfaces.IncidentRepository,
	ambulanceRepo interfaces.AmbulanceRepository,
	hospitalRepo interfaces.HospitalRepository,
	hub *websocket.Hub,
	log *logger.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		incidentRepo:  incidentRepo,
		ambulanceRepo: ambulanceRepo,
		hospitalRepo:  hospitalRepo,
		hub:           hub,
		logger:        log,
	}
}

func (s *AnalyticsService) Snapshot(ctx context.Context) (*FleetSnapshot, error) {
	snapshot := &FleetSnapshot{
		UnitsByStatus: make(map[string]int64),
	}

	active, err := s.incidentRepo.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	snapshot.ActiveIncidents = active

	statuses := []models.AmbulanceStatus{
		models.AmbulanceStatusIdle,
		models.AmbulanceStatusDispatched,
		models.AmbulanceStatusOnScene,
		models.AmbulanceStatusTransporting,
		models.AmbulanceStatusAtHospital,
	}
	for _, status := range statuses {
		n, err := s.ambulanceRepo.CountByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		snapshot.UnitsByStatus[string(status)] = n
	}
	snapshot.AvailableUnits = snapshot.UnitsByStatus[string(models.AmbulanceStatusIdle)]

	hospitals, err := s.hospitalRepo.List(ctx, false)
	if err != nil {
		return nil, err
	}
	snapshot.Hospitals = len(hospitals)
	for _, h := range hospitals {
		if h.IsAvailable {
			snapshot.HospitalsOnline++
		}
		snapshot.TotalBedsAvailable += h.BedsAvailable
		// Under five free beds counts as at capacity.
		if h.BedsAvailable < 5 {
			snapshot.HospitalsAtCapacity++
		}
	}

	if s.hub != nil {
		snapshot.ConnectedClients = s.hub.ConnectedClients()
	}

	return snapshot, nil
}
