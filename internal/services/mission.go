package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lifeline/internal/config"
	"lifeline/internal/models"
	"lifeline/internal/repositories/interfaces"
	"lifeline/internal/utils"
	"lifeline/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MissionService drives the ambulance lifecycle:
//
//	idle -> dispatched -> on_scene -> transporting -> at_hospital -> idle
//
// Every transition is a conditional write, so two crews racing the same
// step cannot both win. The dispatched -> on_scene step fires
// automatically from location updates inside the proximity threshold;
// the drop-off confirmation is manual unless configured otherwise.
type MissionService struct {
	ambulanceRepo interfaces.AmbulanceRepository
	incidentRepo  interfaces.IncidentRepository
	hospitalRepo  interfaces.HospitalRepository
	matching      *MatchingService
	locator       *LocatorService
	publisher     EventPublisher
	cfg           *config.DispatchConfig
	logger        *logger.Logger
}

func NewMissionService(
	ambulanceRepo interfaces.AmbulanceRepository,
	incidentRepo interfaces.IncidentRepository,
	hospitalRepo interfaces.HospitalRepository,
	matching *MatchingService,
	locator *LocatorService,
	publisher EventPublisher,
	cfg *config.DispatchConfig,
	log *logger.Logger,
) *MissionService {
	return &MissionService{
		ambulanceRepo: ambulanceRepo,
		incidentRepo:  incidentRepo,
		hospitalRepo:  hospitalRepo,
		matching:      matching,
		locator:       locator,
		publisher:     publisher,
		cfg:           cfg,
		logger:        log,
	}
}

// ClaimIncident binds an idle unit to a pending incident. Exactly one
// of any concurrent claimants wins; the rest get ErrAlreadyAssigned and
// stay idle.
func (s *MissionService) ClaimIncident(ctx context.Context, ambulanceID, incidentID primitive.ObjectID) (*models.Ambulance, error) {
	incident, err := s.incidentRepo.GetByID(ctx, incidentID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading incident: %w", err)
	}
	if incident.Status != models.IncidentStatusPending {
		return nil, ErrAlreadyAssigned
	}

	ambulance, err := s.ambulanceRepo.Claim(ctx, ambulanceID, incidentID)
	if err != nil {
		switch {
		case errors.Is(err, interfaces.ErrNotFound):
			return nil, ErrNotFound
		case errors.Is(err, interfaces.ErrConflict):
			return nil, ErrAlreadyAssigned
		}
		return nil, fmt.Errorf("claiming unit: %w", err)
	}

	err = s.incidentRepo.UpdateStatus(ctx, incidentID,
		models.IncidentStatusPending, models.IncidentStatusAssigned,
		map[string]interface{}{"assigned_ambulance_id": ambulanceID})
	if err != nil {
		// Another unit won the incident between our two writes. Release
		// this unit back to the pool.
		if _, rbErr := s.ambulanceRepo.TransitionStatus(ctx, ambulanceID,
			models.AmbulanceStatusDispatched, models.AmbulanceStatusIdle,
			map[string]interface{}{"current_incident_id": nil}); rbErr != nil {
			s.logger.WithError(rbErr).WithAmbulanceID(ambulanceID).Error("Failed to release unit after lost claim")
		}
		if errors.Is(err, interfaces.ErrConflict) {
			return nil, ErrAlreadyAssigned
		}
		return nil, fmt.Errorf("assigning incident: %w", err)
	}

	s.logger.LogMissionEvent(ambulanceID, string(models.AmbulanceStatusIdle), string(models.AmbulanceStatusDispatched),
		map[string]interface{}{"incident_id": incidentID.Hex()})

	incident.Status = models.IncidentStatusAssigned
	incident.AssignedAmbulanceID = &ambulanceID
	s.publishMissionUpdate(ctx, incident, ambulanceID)

	return ambulance, nil
}

// UpdateLocation records a position report from a unit and fires the
// proximity transitions it enables. Repeated reports inside the
// threshold are idempotent: the conditional write only succeeds once.
func (s *MissionService) UpdateLocation(ctx context.Context, ambulanceID primitive.ObjectID, lat, lng float64) (*models.Ambulance, error) {
	if !utils.IsValidCoordinates(lat, lng) {
		return nil, fmt.Errorf("position out of range: %w", ErrValidation)
	}

	location := models.NewLocation(lat, lng)
	if err := s.ambulanceRepo.UpdateLocation(ctx, ambulanceID, location); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storing position: %w", err)
	}
	s.locator.RecordAmbulancePosition(ctx, ambulanceID, lat, lng)

	ambulance, err := s.ambulanceRepo.GetByID(ctx, ambulanceID)
	if err != nil {
		return nil, fmt.Errorf("loading unit: %w", err)
	}
	ambulance.CurrentLocation = &location

	switch ambulance.Status {
	case models.AmbulanceStatusDispatched:
		s.maybeArriveOnScene(ctx, ambulance, lat, lng)
	case models.AmbulanceStatusTransporting:
		if s.cfg.ArrivalConfirmation == config.ArrivalConfirmProximity {
			s.maybeArriveAtHospital(ctx, ambulance, lat, lng)
		}
	}

	return ambulance, nil
}

func (s *MissionService) maybeArriveOnScene(ctx context.Context, ambulance *models.Ambulance, lat, lng float64) {
	if ambulance.CurrentIncidentID == nil {
		return
	}
	incident, err := s.incidentRepo.GetByID(ctx, *ambulance.CurrentIncidentID)
	if err != nil {
		s.logger.WithError(err).WithAmbulanceID(ambulance.ID).Warn("Proximity check skipped, incident lookup failed")
		return
	}

	distance := utils.DistanceMeters(lat, lng, incident.Location.Latitude(), incident.Location.Longitude())
	if distance > s.cfg.ArrivalProximityMeters {
		return
	}

	updated, err := s.ambulanceRepo.TransitionStatus(ctx, ambulance.ID,
		models.AmbulanceStatusDispatched, models.AmbulanceStatusOnScene, nil)
	if err != nil {
		// Lost to a concurrent update, most likely an earlier report
		// already inside the threshold. Nothing to do.
		if !errors.Is(err, interfaces.ErrConflict) {
			s.logger.WithError(err).WithAmbulanceID(ambulance.ID).Error("On-scene transition failed")
		}
		return
	}
	*ambulance = *updated

	s.logger.LogMissionEvent(ambulance.ID, string(models.AmbulanceStatusDispatched), string(models.AmbulanceStatusOnScene),
		map[string]interface{}{"distance_m": distance})
	s.publishMissionUpdate(ctx, incident, ambulance.ID)
}

func (s *MissionService) maybeArriveAtHospital(ctx context.Context, ambulance *models.Ambulance, lat, lng float64) {
	if ambulance.CurrentHospitalID == nil {
		return
	}
	hospital, err := s.hospitalRepo.GetByID(ctx, *ambulance.CurrentHospitalID)
	if err != nil {
		s.logger.WithError(err).WithAmbulanceID(ambulance.ID).Warn("Proximity check skipped, hospital lookup failed")
		return
	}

	distance := utils.DistanceMeters(lat, lng, hospital.Location.Latitude(), hospital.Location.Longitude())
	if distance > s.cfg.ArrivalProximityMeters {
		return
	}

	if _, err := s.arriveAtHospital(ctx, ambulance.ID); err != nil && !errors.Is(err, ErrInvalidTransition) {
		s.logger.WithError(err).WithAmbulanceID(ambulance.ID).Error("At-hospital transition failed")
	}
}

// DepartForHospital moves an on-scene unit to transporting. On-scene
// triage can override the destination: when casualties are recorded,
// the first one's profile re-runs the hospital match for the transport
// leg.
func (s *MissionService) DepartForHospital(ctx context.Context, ambulanceID primitive.ObjectID, casualties []models.Casualty) (*models.Ambulance, error) {
	ambulance, err := s.ambulanceRepo.GetByID(ctx, ambulanceID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading unit: %w", err)
	}
	if ambulance.CurrentIncidentID == nil {
		return nil, fmt.Errorf("unit holds no mission: %w", ErrInvalidTransition)
	}

	incident, err := s.incidentRepo.GetByID(ctx, *ambulance.CurrentIncidentID)
	if err != nil {
		return nil, fmt.Errorf("loading incident: %w", err)
	}

	destinationID := incident.DestinationHospitalID
	if len(casualties) > 0 {
		if err := s.incidentRepo.Update(ctx, incident.ID, map[string]interface{}{"casualties": casualties}); err != nil {
			s.logger.WithError(err).WithIncidentID(incident.ID).Warn("Failed to store casualty data")
		}
		incident.Casualties = casualties

		if rematched := s.rematchDestination(ctx, incident, casualties[0]); rematched != nil {
			destinationID = rematched
		}
	}
	if destinationID == nil {
		return nil, fmt.Errorf("no destination hospital for transport: %w", ErrNoCandidates)
	}

	updated, err := s.ambulanceRepo.TransitionStatus(ctx, ambulanceID,
		models.AmbulanceStatusOnScene, models.AmbulanceStatusTransporting,
		map[string]interface{}{"current_hospital_id": *destinationID})
	if err != nil {
		if errors.Is(err, interfaces.ErrConflict) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("transport transition: %w", err)
	}

	if err := s.incidentRepo.UpdateStatus(ctx, incident.ID,
		models.IncidentStatusAssigned, models.IncidentStatusPickedUp, nil); err != nil {
		s.logger.WithError(err).WithIncidentID(incident.ID).Warn("Incident pickup status update failed")
	} else {
		incident.Status = models.IncidentStatusPickedUp
	}

	s.logger.LogMissionEvent(ambulanceID, string(models.AmbulanceStatusOnScene), string(models.AmbulanceStatusTransporting),
		map[string]interface{}{"hospital_id": destinationID.Hex()})
	s.publishMissionUpdate(ctx, incident, ambulanceID)

	return updated, nil
}

// rematchDestination reruns the hospital match with the representative
// casualty's profile. Returns nil when the match fails; the original
// destination stands.
func (s *MissionService) rematchDestination(ctx context.Context, incident *models.Incident, casualty models.Casualty) *primitive.ObjectID {
	best, err := s.matching.BestMatch(ctx, &models.MatchRequest{
		Latitude:    incident.Location.Latitude(),
		Longitude:   incident.Location.Longitude(),
		InjuryType:  casualty.InjuryType,
		BloodType:   casualty.BloodType,
		UnitsNeeded: casualty.RequiredUnits,
	})
	if err != nil {
		s.logger.WithError(err).WithIncidentID(incident.ID).Warn("Destination rematch failed, keeping original")
		return nil
	}

	if err := s.incidentRepo.SetDestinationHospital(ctx, incident.ID, best.HospitalID); err != nil {
		s.logger.WithError(err).WithIncidentID(incident.ID).Warn("Failed to persist rematched destination")
		return nil
	}
	incident.DestinationHospitalID = &best.HospitalID

	event := &models.DispatchEvent{
		Type:     models.EventNewEmergency,
		Incident: incident,
		MatchContext: map[string]interface{}{
			"scores":      best.Scores,
			"distance_km": best.DistanceKm,
			"rematched":   true,
		},
	}
	if err := s.publisher.PublishToHospital(ctx, best.HospitalID.Hex(), event); err != nil {
		s.logger.WithError(err).WithHospitalID(best.HospitalID).Warn("Rematched hospital notification failed")
	}

	return &best.HospitalID
}

// ConfirmArrival is the manual transporting -> at_hospital step.
func (s *MissionService) ConfirmArrival(ctx context.Context, ambulanceID primitive.ObjectID) (*models.Ambulance, error) {
	return s.arriveAtHospital(ctx, ambulanceID)
}

func (s *MissionService) arriveAtHospital(ctx context.Context, ambulanceID primitive.ObjectID) (*models.Ambulance, error) {
	updated, err := s.ambulanceRepo.TransitionStatus(ctx, ambulanceID,
		models.AmbulanceStatusTransporting, models.AmbulanceStatusAtHospital, nil)
	if err != nil {
		switch {
		case errors.Is(err, interfaces.ErrNotFound):
			return nil, ErrNotFound
		case errors.Is(err, interfaces.ErrConflict):
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("arrival transition: %w", err)
	}

	s.logger.LogMissionEvent(ambulanceID, string(models.AmbulanceStatusTransporting), string(models.AmbulanceStatusAtHospital), nil)

	if updated.CurrentIncidentID != nil {
		if incident, err := s.incidentRepo.GetByID(ctx, *updated.CurrentIncidentID); err == nil {
			s.publishMissionUpdate(ctx, incident, ambulanceID)
		}
	}

	return updated, nil
}

// CompleteMission hands the casualty over and returns the unit to the
// pool: at_hospital -> idle, incident resolved, bindings cleared.
func (s *MissionService) CompleteMission(ctx context.Context, ambulanceID primitive.ObjectID) (*models.Ambulance, error) {
	ambulance, err := s.ambulanceRepo.GetByID(ctx, ambulanceID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading unit: %w", err)
	}
	incidentID := ambulance.CurrentIncidentID

	updated, err := s.ambulanceRepo.TransitionStatus(ctx, ambulanceID,
		models.AmbulanceStatusAtHospital, models.AmbulanceStatusIdle,
		map[string]interface{}{"current_incident_id": nil, "current_hospital_id": nil})
	if err != nil {
		if errors.Is(err, interfaces.ErrConflict) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("completion transition: %w", err)
	}

	s.logger.LogMissionEvent(ambulanceID, string(models.AmbulanceStatusAtHospital), string(models.AmbulanceStatusIdle), nil)

	if incidentID != nil {
		now := time.Now()
		if err := s.incidentRepo.UpdateStatus(ctx, *incidentID,
			models.IncidentStatusPickedUp, models.IncidentStatusResolved,
			map[string]interface{}{"resolved_at": now}); err != nil {
			s.logger.WithError(err).WithIncidentID(*incidentID).Warn("Incident resolution update failed")
		}
		if incident, err := s.incidentRepo.GetByID(ctx, *incidentID); err == nil {
			s.publishMissionUpdate(ctx, incident, ambulanceID)
		}
	}

	return updated, nil
}

// publishMissionUpdate tells the ambulance and the destination hospital
// about a lifecycle change. Best effort on both channels.
func (s *MissionService) publishMissionUpdate(ctx context.Context, incident *models.Incident, ambulanceID primitive.ObjectID) {
	event := &models.DispatchEvent{
		Type:     models.EventMissionUpdate,
		Incident: incident,
	}
	if err := s.publisher.PublishToAmbulance(ctx, ambulanceID.Hex(), event); err != nil {
		s.logger.WithError(err).WithAmbulanceID(ambulanceID).Warn("Mission update to unit failed")
	}
	if incident.DestinationHospitalID != nil {
		if err := s.publisher.PublishToHospital(ctx, incident.DestinationHospitalID.Hex(), event); err != nil {
			s.logger.WithError(err).WithIncidentID(incident.ID).Warn("Mission update to hospital failed")
		}
	}
}
