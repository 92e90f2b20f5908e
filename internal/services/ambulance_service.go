package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lifeline/internal/models"
	"lifeline/internal/repositories/interfaces"
	"lifeline/internal/utils"
	"lifeline/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AmbulanceService owns fleet registry operations. Mission lifecycle
// transitions live in MissionService.
type AmbulanceService struct {
	ambulanceRepo interfaces.AmbulanceRepository
	locator       *LocatorService
	logger        *logger.Logger
}

func NewAmbulanceService(ambulanceRepo interfaces.AmbulanceRepository, locator *LocatorService, log *logger.Logger) *AmbulanceService {
	return &AmbulanceService{
		ambulanceRepo: ambulanceRepo,
		locator:       locator,
		logger:        log,
	}
}

func (s *AmbulanceService) Register(ctx context.Context, ambulance *models.Ambulance) error {
	if ambulance.Type != models.AmbulanceTypeALS && ambulance.Type != models.AmbulanceTypeBLS {
		ambulance.Type = models.AmbulanceTypeBLS
	}

	now := time.Now()
	ambulance.Status = models.AmbulanceStatusIdle
	ambulance.Version = 0
	ambulance.CreatedAt = now
	ambulance.UpdatedAt = now

	if err := s.ambulanceRepo.Create(ctx, ambulance); err != nil {
		return fmt.Errorf("storing ambulance: %w", err)
	}

	if ambulance.CurrentLocation != nil && !ambulance.CurrentLocation.IsZero() {
		s.locator.RecordAmbulancePosition(ctx, ambulance.ID,
			ambulance.CurrentLocation.Latitude(), ambulance.CurrentLocation.Longitude())
	}

	s.logger.WithAmbulanceID(ambulance.ID).WithField("type", ambulance.Type).Info("Ambulance registered")
	return nil
}

func (s *AmbulanceService) Get(ctx context.Context, id primitive.ObjectID) (*models.Ambulance, error) {
	ambulance, err := s.ambulanceRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return ambulance, nil
}

func (s *AmbulanceService) List(ctx context.Context) ([]*models.Ambulance, error) {
	return s.ambulanceRepo.List(ctx)
}

// NearbyIdle lists the k nearest idle units to a point, for dispatcher
// map views.
func (s *AmbulanceService) NearbyIdle(ctx context.Context, lat, lng float64, k int) ([]models.NearbyUnit, error) {
	if !utils.IsValidCoordinates(lat, lng) {
		return nil, fmt.Errorf("query position: %w", ErrValidation)
	}
	if k <= 0 {
		k = utils.DefaultNearestK
	}
	return s.locator.NearestIdleAmbulances(ctx, lat, lng, k, nil)
}
