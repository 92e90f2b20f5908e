package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"lifeline/internal/models"
	"lifeline/internal/repositories/interfaces"
	"lifeline/internal/utils"
	"lifeline/pkg/logger"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// HospitalService owns hospital registry operations and the blood
// alert lifecycle on the receiving side.
type HospitalService struct {
	hospitalRepo interfaces.HospitalRepository
	incidentRepo interfaces.IncidentRepository
	locator      *LocatorService
	publisher    EventPublisher
	logger       *logger.Logger
}

func NewHospitalService(
	hospitalRepo interfaces.HospitalRepository,
	incidentRepo interfaces.IncidentRepository,
	locator *LocatorService,
	publisher EventPublisher,
	log *logger.Logger,
) *HospitalService {
	return &HospitalService{
		hospitalRepo: hospitalRepo,
		incidentRepo: incidentRepo,
		locator:      locator,
		publisher:    publisher,
		logger:       log,
	}
}

func (s *HospitalService) Create(ctx context.Context, hospital *models.Hospital) error {
	if hospital.Location.IsZero() || !utils.IsValidCoordinates(hospital.Location.Latitude(), hospital.Location.Longitude()) {
		return fmt.Errorf("hospital location: %w", ErrValidation)
	}
	for bt := range hospital.BloodInventory {
		if !models.ValidBloodType(bt) {
			return fmt.Errorf("unknown blood type %q: %w", bt, ErrValidation)
		}
	}

	now := time.Now()
	hospital.IsAvailable = true
	hospital.CreatedAt = now
	hospital.UpdatedAt = now

	if err := s.hospitalRepo.Create(ctx, hospital); err != nil {
		return fmt.Errorf("storing hospital: %w", err)
	}

	s.locator.RecordHospitalPosition(hospital.ID, hospital.Name, hospital.Location.Latitude(), hospital.Location.Longitude())
	s.logger.WithHospitalID(hospital.ID).Info("Hospital registered")
	return nil
}

func (s *HospitalService) Get(ctx context.Context, id primitive.ObjectID) (*models.Hospital, error) {
	hospital, err := s.hospitalRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return hospital, nil
}

func (s *HospitalService) List(ctx context.Context, onlyAvailable bool) ([]*models.Hospital, error) {
	return s.hospitalRepo.List(ctx, onlyAvailable)
}

func (s *HospitalService) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) (*models.Hospital, error) {
	if err := s.hospitalRepo.Update(ctx, id, updates); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("updating hospital: %w", err)
	}

	hospital, err := s.hospitalRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !hospital.Location.IsZero() {
		s.locator.RecordHospitalPosition(hospital.ID, hospital.Name, hospital.Location.Latitude(), hospital.Location.Longitude())
	}
	return hospital, nil
}

func (s *HospitalService) SetAvailability(ctx context.Context, id primitive.ObjectID, available bool) error {
	if err := s.hospitalRepo.SetAvailability(ctx, id, available); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.logger.WithHospitalID(id).WithField("available", available).Info("Hospital availability changed")
	return nil
}

// IncomingBoard lists incidents currently headed to a hospital.
func (s *HospitalService) IncomingBoard(ctx context.Context, hospitalID primitive.ObjectID) ([]*models.Incident, error) {
	if _, err := s.Get(ctx, hospitalID); err != nil {
		return nil, err
	}
	return s.incidentRepo.GetIncomingForHospital(ctx, hospitalID)
}

// RaiseBloodAlert files a manual blood transfer request with the
// requesting hospital's nearest neighbor and returns the stored alert.
func (s *HospitalService) RaiseBloodAlert(ctx context.Context, hospitalID primitive.ObjectID, bloodType models.BloodType, units float64) (*models.BloodAlert, error) {
	if !models.ValidBloodType(bloodType) {
		return nil, fmt.Errorf("unknown blood type %q: %w", bloodType, ErrValidation)
	}
	if units <= 0 {
		return nil, fmt.Errorf("units must be positive: %w", ErrValidation)
	}

	requester, err := s.Get(ctx, hospitalID)
	if err != nil {
		return nil, err
	}

	neighbors, err := s.locator.NearestHospitals(ctx, requester.Location.Latitude(), requester.Location.Longitude(), 1, []primitive.ObjectID{hospitalID})
	if err != nil || len(neighbors) == 0 {
		return nil, ErrNoCandidates
	}
	target := neighbors[0]

	alert := &models.BloodAlert{
		ID:                      uuid.NewString(),
		RequestingHospitalID:    requester.ID,
		RequestingHospitalName:  requester.Name,
		RequestingHospitalPhone: requester.Phone,
		BloodType:               bloodType,
		UnitsRequested:          units,
		Urgency:                 "urgent",
		Status:                  models.BloodAlertStatusPending,
		DistanceKm:              target.DistanceKm,
		CreatedAt:               time.Now(),
	}
	if err := s.hospitalRepo.AddBloodAlert(ctx, target.ID, alert); err != nil {
		return nil, fmt.Errorf("storing blood alert: %w", err)
	}

	event := &models.DispatchEvent{
		Type: models.EventBloodAlert,
		MatchContext: map[string]interface{}{
			"alert": alert,
		},
	}
	if err := s.publisher.PublishToHospital(ctx, target.ID.Hex(), event); err != nil {
		s.logger.WithError(err).WithHospitalID(target.ID).Warn("Blood alert notification failed")
	}

	s.logger.WithHospitalID(hospitalID).
		WithField("blood_type", bloodType).
		WithField("units", units).
		Info("Blood alert raised")
	return alert, nil
}

// ListBloodAlerts returns the alerts filed against a hospital, newest
// first.
func (s *HospitalService) ListBloodAlerts(ctx context.Context, hospitalID primitive.ObjectID) ([]models.BloodAlert, error) {
	hospital, err := s.Get(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	alerts := make([]models.BloodAlert, len(hospital.BloodAlerts))
	copy(alerts, hospital.BloodAlerts)
	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})
	return alerts, nil
}

// RespondBloodAlert records a hospital's answer to a transfer request.
// Accepting decrements the responder's stock by the requested units and
// notifies the requesting hospital either way.
func (s *HospitalService) RespondBloodAlert(ctx context.Context, hospitalID primitive.ObjectID, alertID string, accept bool, reason string) (*models.BloodAlert, error) {
	status := models.BloodAlertStatusRejected
	if accept {
		status = models.BloodAlertStatusAccepted
	}

	alert, err := s.hospitalRepo.RespondBloodAlert(ctx, hospitalID, alertID, status, reason)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("responding to blood alert: %w", err)
	}

	if accept {
		if err := s.hospitalRepo.DecrementBloodInventory(ctx, hospitalID, alert.BloodType, alert.UnitsRequested); err != nil {
			s.logger.WithError(err).WithHospitalID(hospitalID).Warn("Failed to decrement blood inventory after accept")
		}
	}

	event := &models.DispatchEvent{
		Type: models.EventBloodAlert,
		MatchContext: map[string]interface{}{
			"alert":    alert,
			"response": status,
		},
	}
	if err := s.publisher.PublishToHospital(ctx, alert.RequestingHospitalID.Hex(), event); err != nil {
		s.logger.WithError(err).WithHospitalID(alert.RequestingHospitalID).Warn("Blood alert response notification failed")
	}

	return alert, nil
}
