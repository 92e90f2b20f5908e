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

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReportRequest is an inbound emergency report.
type ReportRequest struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Latitude    float64          `json:"latitude"`
	Longitude   float64          `json:"longitude"`
	InjuryType  string           `json:"injury_type,omitempty"`
	BloodType   models.BloodType `json:"blood_type,omitempty"`
	UnitsNeeded float64          `json:"units_needed,omitempty"`
	ImageBase64 string           `json:"image_base64,omitempty"`
	ReportedBy  string           `json:"reported_by,omitempty"`
}

// ReportOutcome is what the caller gets back from a successful report:
// the stored incident, the ranked hospital list, and which units were
// paged. Degraded is set when the fan-out fell back to the global
// broadcast.
type ReportOutcome struct {
	Incident      *models.Incident      `json:"incident"`
	Hospitals     []*models.MatchResult `json:"hospitals,omitempty"`
	NotifiedUnits []models.NearbyUnit   `json:"notified_units,omitempty"`
	NearbyUnits   []models.NearbyUnit   `json:"nearby_units,omitempty"`
	Assessment    *Assessment           `json:"assessment,omitempty"`
	Degraded      bool                  `json:"degraded"`
}

// DispatchService runs the report-to-fan-out pipeline. The hospital
// path and the ambulance path are independent: a failure in one never
// blocks the other, and the incident record survives both failing.
type DispatchService struct {
	incidentRepo  interfaces.IncidentRepository
	hospitalRepo  interfaces.HospitalRepository
	ambulanceRepo interfaces.AmbulanceRepository
	triage        *TriageService
	matching      *MatchingService
	locator       *LocatorService
	publisher     EventPublisher
	cfg           *config.DispatchConfig
	logger        *logger.Logger
}

func NewDispatchService(
	incidentRepo interfaces.IncidentRepository,
	hospitalRepo interfaces.HospitalRepository,
	ambulanceRepo interfaces.AmbulanceRepository,
	triage *TriageService,
	matching *MatchingService,
	locator *LocatorService,
	publisher EventPublisher,
	cfg *config.DispatchConfig,
	log *logger.Logger,
) *DispatchService {
	return &DispatchService{
		incidentRepo:  incidentRepo,
		hospitalRepo:  hospitalRepo,
		ambulanceRepo: ambulanceRepo,
		triage:        triage,
		matching:      matching,
		locator:       locator,
		publisher:     publisher,
		cfg:           cfg,
		logger:        log,
	}
}

// ReportIncident ingests an emergency report: triage, persist, match a
// destination hospital, and page nearby idle units. Returns
// ErrNonEmergency without creating any record when the classifier is
// certain the report is not an emergency.
func (s *DispatchService) ReportIncident(ctx context.Context, req *ReportRequest) (*ReportOutcome, error) {
	if !utils.IsValidCoordinates(req.Latitude, req.Longitude) {
		return nil, fmt.Errorf("incident coordinates out of range: %w", ErrValidation)
	}
	if req.UnitsNeeded > 0 && req.BloodType == "" {
		return nil, fmt.Errorf("blood units requested without a blood type: %w", ErrValidation)
	}

	assessment, err := s.triage.Assess(ctx, req.ImageBase64)
	if err != nil {
		if errors.Is(err, ErrNonEmergency) {
			s.logger.WithField("analysis", assessment.Analysis).Info("Report rejected as non-emergency")
			return &ReportOutcome{Assessment: assessment}, err
		}
		return nil, fmt.Errorf("triage: %w", err)
	}

	now := time.Now()
	incident := &models.Incident{
		Title:                req.Title,
		Description:          req.Description,
		Location:             models.NewLocation(req.Latitude, req.Longitude),
		Status:               models.IncidentStatusPending,
		Severity:             assessment.Severity,
		Analysis:             assessment.Analysis,
		RecommendedAmbulance: assessment.RecommendedAmbulance,
		InjuryType:           req.InjuryType,
		BloodType:            req.BloodType,
		UnitsNeeded:          req.UnitsNeeded,
		ReportedBy:           req.ReportedBy,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.incidentRepo.Create(ctx, incident); err != nil {
		return nil, fmt.Errorf("storing incident: %w", err)
	}

	log := s.logger.WithIncidentID(incident.ID)
	log.WithFields(map[string]interface{}{
		"severity": incident.Severity,
		"degraded": assessment.Degraded,
	}).Info("Incident created")

	outcome := &ReportOutcome{
		Incident:   incident,
		Assessment: assessment,
	}

	// Hospital and ambulance paths run independently.
	s.runHospitalPath(ctx, incident, req, outcome)
	s.runAmbulancePath(ctx, incident, outcome)

	outcome.Degraded = outcome.Degraded || assessment.Degraded
	return outcome, nil
}

// runHospitalPath picks the destination hospital, notifies it, and
// raises a blood alert at its nearest neighbor when the destination
// cannot cover the requested units.
func (s *DispatchService) runHospitalPath(ctx context.Context, incident *models.Incident, req *ReportRequest, outcome *ReportOutcome) {
	log := s.logger.WithIncidentID(incident.ID)

	ranked, err := s.matching.Match(ctx, &models.MatchRequest{
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		InjuryType:  req.InjuryType,
		BloodType:   req.BloodType,
		UnitsNeeded: req.UnitsNeeded,
	})
	if err != nil {
		log.WithError(err).Warn("Hospital matching failed, incident stays without destination")
		return
	}
	outcome.Hospitals = ranked

	best := BestHospital(ranked)
	if best == nil {
		log.Warn("No hospital with free beds, incident stays without destination")
		return
	}

	if err := s.incidentRepo.SetDestinationHospital(ctx, incident.ID, best.HospitalID); err != nil {
		log.WithError(err).Error("Failed to persist destination hospital")
	} else {
		incident.DestinationHospitalID = &best.HospitalID
	}

	event := &models.DispatchEvent{
		Type:     models.EventNewEmergency,
		Incident: incident,
		MatchContext: map[string]interface{}{
			"scores":              best.Scores,
			"distance_km":         best.DistanceKm,
			"duration_minutes":    best.DurationMinutes,
			"required_specialist": best.RequiredSpecialist,
		},
	}
	if err := s.publisher.PublishToHospital(ctx, best.HospitalID.Hex(), event); err != nil {
		log.WithError(err).Warn("Hospital notification failed")
	}

	s.maybeRaiseBloodAlert(ctx, incident, req, best)
}

// maybeRaiseBloodAlert files a transfer request with the destination's
// nearest neighbor when the destination is short on the needed type.
func (s *DispatchService) maybeRaiseBloodAlert(ctx context.Context, incident *models.Incident, req *ReportRequest, best *models.MatchResult) {
	if req.BloodType == "" || req.UnitsNeeded <= 0 || best.NearestHospital == nil {
		return
	}
	if best.Scores.Blood >= 100 {
		return
	}

	log := s.logger.WithIncidentID(incident.ID).WithHospitalID(best.NearestHospital.HospitalID)

	destination, err := s.hospitalRepo.GetByID(ctx, best.HospitalID)
	if err != nil {
		log.WithError(err).Warn("Blood alert skipped, destination lookup failed")
		return
	}

	shortfall := req.UnitsNeeded - destination.AvailableUnits(req.BloodType)
	if shortfall <= 0 {
		return
	}

	alert := &models.BloodAlert{
		ID:                      uuid.NewString(),
		RequestingHospitalID:    destination.ID,
		RequestingHospitalName:  destination.Name,
		RequestingHospitalPhone: destination.Phone,
		BloodType:               req.BloodType,
		UnitsRequested:          shortfall,
		Urgency:                 "urgent",
		Status:                  models.BloodAlertStatusPending,
		DistanceKm:              best.NearestHospital.DistanceKm,
		CreatedAt:               time.Now(),
	}
	if err := s.hospitalRepo.AddBloodAlert(ctx, best.NearestHospital.HospitalID, alert); err != nil {
		log.WithError(err).Warn("Failed to store blood alert")
		return
	}

	event := &models.DispatchEvent{
		Type:     models.EventBloodAlert,
		Incident: incident,
		MatchContext: map[string]interface{}{
			"alert": alert,
		},
	}
	if err := s.publisher.PublishToHospital(ctx, best.NearestHospital.HospitalID.Hex(), event); err != nil {
		log.WithError(err).Warn("Blood alert notification failed")
	}
}

// runAmbulancePath pages each idle unit within the notification
// ceiling. When none is close enough, or the locator could not answer,
// it publishes exactly one degraded global broadcast instead.
func (s *DispatchService) runAmbulancePath(ctx context.Context, incident *models.Incident, outcome *ReportOutcome) {
	log := s.logger.WithIncidentID(incident.ID)

	lat, lng := incident.Location.Latitude(), incident.Location.Longitude()

	units, err := s.locator.NearestIdleAmbulances(ctx, lat, lng, s.cfg.NearestK, nil)
	if err != nil {
		log.WithError(err).Warn("Ambulance locator failed, broadcasting globally")
		s.broadcastDegraded(ctx, incident, outcome)
		return
	}
	outcome.NearbyUnits = units

	notified := make([]models.NearbyUnit, 0, len(units))
	for _, unit := range units {
		if unit.DistanceKm > s.cfg.NotifyCeilingKm {
			// Listed for the dispatcher but not paged.
			continue
		}
		event := &models.DispatchEvent{
			Type:     models.EventEmergencyOffer,
			Incident: incident,
			MatchContext: map[string]interface{}{
				"distance_km": unit.DistanceKm,
			},
		}
		if err := s.publisher.PublishToAmbulance(ctx, unit.ID.Hex(), event); err != nil {
			log.WithError(err).WithAmbulanceID(unit.ID).Warn("Ambulance page failed")
			continue
		}
		notified = append(notified, unit)
	}

	if len(notified) == 0 {
		s.broadcastDegraded(ctx, incident, outcome)
		return
	}
	outcome.NotifiedUnits = notified
}

func (s *DispatchService) broadcastDegraded(ctx context.Context, incident *models.Incident, outcome *ReportOutcome) {
	event := &models.DispatchEvent{
		Type:     models.EventEmergencyBroadcast,
		Degraded: true,
		Incident: incident,
	}
	if err := s.publisher.PublishGlobal(ctx, event); err != nil {
		s.logger.WithError(err).WithIncidentID(incident.ID).Error("Global broadcast failed")
		return
	}
	outcome.Degraded = true
}

// GetIncident loads one incident.
func (s *DispatchService) GetIncident(ctx context.Context, id primitive.ObjectID) (*models.Incident, error) {
	incident, err := s.incidentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return incident, nil
}

// ListIncidents returns incidents, optionally filtered by status.
func (s *DispatchService) ListIncidents(ctx context.Context, status models.IncidentStatus, limit int) ([]*models.Incident, error) {
	if limit <= 0 || limit > utils.MaxPageSize {
		limit = utils.DefaultPageSize
	}
	return s.incidentRepo.List(ctx, status, limit)
}

// PendingIncidents lists incidents still waiting for a unit, the feed
// an idle crew claims from.
func (s *DispatchService) PendingIncidents(ctx context.Context) ([]*models.Incident, error) {
	return s.incidentRepo.GetPending(ctx)
}

// CancelIncident aborts a pending or assigned incident and frees the
// bound unit if any.
func (s *DispatchService) CancelIncident(ctx context.Context, id primitive.ObjectID) (*models.Incident, error) {
	incident, err := s.incidentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading incident: %w", err)
	}
	if !incident.Active() {
		return nil, fmt.Errorf("incident is %s: %w", incident.Status, ErrInvalidTransition)
	}

	if err := s.incidentRepo.UpdateStatus(ctx, id, incident.Status, models.IncidentStatusCancelled, nil); err != nil {
		if errors.Is(err, interfaces.ErrConflict) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("cancelling incident: %w", err)
	}
	incident.Status = models.IncidentStatusCancelled

	if incident.AssignedAmbulanceID != nil {
		s.releaseUnit(ctx, id, *incident.AssignedAmbulanceID)
	}

	event := &models.DispatchEvent{
		Type:     models.EventMissionUpdate,
		Incident: incident,
	}
	if incident.AssignedAmbulanceID != nil {
		if err := s.publisher.PublishToAmbulance(ctx, incident.AssignedAmbulanceID.Hex(), event); err != nil {
			s.logger.WithError(err).WithIncidentID(id).Warn("Cancel notification to unit failed")
		}
	}
	if incident.DestinationHospitalID != nil {
		if err := s.publisher.PublishToHospital(ctx, incident.DestinationHospitalID.Hex(), event); err != nil {
			s.logger.WithError(err).WithIncidentID(id).Warn("Cancel notification to hospital failed")
		}
	}

	return incident, nil
}

// releaseUnit returns a cancelled incident's unit to idle whatever
// mission phase it was in. Best effort, the unit self-heals on its
// next lifecycle call if this misses.
func (s *DispatchService) releaseUnit(ctx context.Context, incidentID, ambulanceID primitive.ObjectID) {
	unit, err := s.ambulanceRepo.GetByID(ctx, ambulanceID)
	if err != nil {
		s.logger.WithError(err).WithIncidentID(incidentID).Warn("Unit release skipped, lookup failed")
		return
	}
	if unit.Status == models.AmbulanceStatusIdle {
		return
	}
	if _, err := s.ambulanceRepo.TransitionStatus(ctx, ambulanceID, unit.Status, models.AmbulanceStatusIdle,
		map[string]interface{}{"current_incident_id": nil, "current_hospital_id": nil}); err != nil {
		s.logger.WithError(err).WithAmbulanceID(ambulanceID).Warn("Unit release failed")
		return
	}
	s.logger.LogMissionEvent(ambulanceID, string(unit.Status), string(models.AmbulanceStatusIdle), map[string]interface{}{
		"reason": "incident_cancelled",
	})
}

// Allowed UpdateIncident fields. Status changes go through the
// lifecycle operations, never through a patch.
var patchableIncidentFields = map[string]bool{
	"title":        true,
	"description":  true,
	"severity":     true,
	"injury_type":  true,
	"blood_type":   true,
	"units_needed": true,
	"reported_by":  true,
}

// UpdateIncident patches descriptive fields on an incident.
func (s *DispatchService) UpdateIncident(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) (*models.Incident, error) {
	filtered := make(map[string]interface{}, len(updates))
	for field, value := range updates {
		if !patchableIncidentFields[field] {
			return nil, fmt.Errorf("field %q is not patchable: %w", field, ErrValidation)
		}
		filtered[field] = value
	}
	if len(filtered) == 0 {
		return nil, fmt.Errorf("no patchable fields given: %w", ErrValidation)
	}

	if err := s.incidentRepo.Update(ctx, id, filtered); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("patching incident: %w", err)
	}
	return s.GetIncident(ctx, id)
}

// DeleteIncident removes an inactive incident record. Active incidents
// must be cancelled first so their unit gets released.
func (s *DispatchService) DeleteIncident(ctx context.Context, id primitive.ObjectID) error {
	incident, err := s.incidentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("loading incident: %w", err)
	}
	if incident.Active() {
		return fmt.Errorf("incident is %s: %w", incident.Status, ErrInvalidTransition)
	}
	if err := s.incidentRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("deleting incident: %w", err)
	}
	s.logger.WithIncidentID(id).Info("Incident deleted")
	return nil
}
