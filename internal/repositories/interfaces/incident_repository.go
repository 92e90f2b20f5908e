package interfaces

import (
	"context"

	"lifeline/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type IncidentRepository interface {
	Create(ctx context.Context, incident *models.Incident) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Incident, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	List(ctx context.Context, status models.IncidentStatus, limit int) ([]*models.Incident, error)
	GetPending(ctx context.Context) ([]*models.Incident, error)

	// UpdateStatus is a compare-and-swap on the incident status.
	// Returns ErrConflict when the current status is not `from`.
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.IncidentStatus, updates map[string]interface{}) error

	SetDestinationHospital(ctx context.Context, id, hospitalID primitive.ObjectID) error

	// GetIncomingForHospital lists active incidents destined to a
	// hospital (assigned or picked up), for its incoming board.
	GetIncomingForHospital(ctx context.Context, hospitalID primitive.ObjectID) ([]*models.Incident, error)

	CountActive(ctx context.Context) (int64, error)
}
