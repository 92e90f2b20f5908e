package interfaces

import (
	"context"

	"lifeline/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type HospitalRepository interface {
	Create(ctx context.Context, hospital *models.Hospital) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Hospital, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error

	// List returns every hospital; onlyAvailable filters out
	// soft-deactivated ones.
	List(ctx context.Context, onlyAvailable bool) ([]*models.Hospital, error)

	// GetNearby returns available hospitals ordered by distance from
	// the point, excluding the given ids, capped at limit.
	GetNearby(ctx context.Context, lat, lng, radiusKm float64, limit int, excludeIDs []primitive.ObjectID) ([]*models.Hospital, error)

	SetAvailability(ctx context.Context, id primitive.ObjectID, available bool) error

	// Blood alert lifecycle (stored on the receiving hospital).
	AddBloodAlert(ctx context.Context, hospitalID primitive.ObjectID, alert *models.BloodAlert) error
	RespondBloodAlert(ctx context.Context, hospitalID primitive.ObjectID, alertID string, status models.BloodAlertStatus, reason string) (*models.BloodAlert, error)

	// DecrementBloodInventory reduces stocked units for a type,
	// flooring at zero.
	DecrementBloodInventory(ctx context.Context, hospitalID primitive.ObjectID, bloodType models.BloodType, units float64) error
}
