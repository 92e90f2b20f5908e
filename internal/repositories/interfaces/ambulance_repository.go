package interfaces

import (
	"context"

	"lifeline/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AmbulanceRepository interface {
	Create(ctx context.Context, ambulance *models.Ambulance) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ambulance, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	List(ctx context.Context) ([]*models.Ambulance, error)

	// GetNearbyIdle returns idle units ordered by distance from the
	// point, capped at limit.
	GetNearbyIdle(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]*models.Ambulance, error)

	UpdateLocation(ctx context.Context, id primitive.ObjectID, location models.Location) error

	// Claim atomically moves an idle unit to dispatched and binds it to
	// the incident. Returns ErrConflict when the unit was not idle
	// anymore, so exactly one of any concurrent claimants wins.
	Claim(ctx context.Context, id, incidentID primitive.ObjectID) (*models.Ambulance, error)

	// TransitionStatus performs a compare-and-swap on the unit's
	// status, applying extra field updates in the same write. Returns
	// ErrConflict when the current status is not `from`.
	TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.AmbulanceStatus, updates map[string]interface{}) (*models.Ambulance, error)

	CountByStatus(ctx context.Context, status models.AmbulanceStatus) (int64, error)
}
