package mongodb

import (
	"context"
	"fmt"
	"time"

	"lifeline/internal/models"
	"lifeline/internal/repositories/interfaces"
	"lifeline/internal/services"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type incidentRepository struct {
	collection *mongo.Collection
	cache      services.CacheService
}

func NewIncidentRepository(db *mongo.Database, cache services.CacheService) interfaces.IncidentRepository {
	return &incidentRepository{
		collection: db.Collection("incidents"),
		cache:      cache,
	}
}

func (r *incidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	incident.ID = primitive.NewObjectID()

	_, err := r.collection.InsertOne(ctx, incident)
	if err != nil {
		return fmt.Errorf("failed to create incident: %w", err)
	}
	return nil
}

func (r *incidentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Incident, error) {
	var incident models.Incident
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&incident)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get incident: %w", err)
	}
	return &incident, nil
}

func (r *incidentRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": updates})
	if err != nil {
		return fmt.Errorf("failed to update incident: %w", err)
	}
	if result.MatchedCount == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

func (r *incidentRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete incident: %w", err)
	}
	if result.DeletedCount == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

func (r *incidentRepository) List(ctx context.Context, status models.IncidentStatus, limit int) ([]*models.Incident, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	opts := options.Find().SetSort(bson.M{"created_at": -1})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer cursor.Close(ctx)

	var incidents []*models.Incident
	if err := cursor.All(ctx, &incidents); err != nil {
		return nil, fmt.Errorf("failed to decode incidents: %w", err)
	}
	return incidents, nil
}

func (r *incidentRepository) GetPending(ctx context.Context) ([]*models.Incident, error) {
	return r.List(ctx, models.IncidentStatusPending, 0)
}

func (r *incidentRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.IncidentStatus, updates map[string]interface{}) error {
	set := bson.M{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range updates {
		set[k] = v
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("failed to update incident status: %w", err)
	}
	if result.MatchedCount == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return interfaces.ErrConflict
	}
	return nil
}

func (r *incidentRepository) SetDestinationHospital(ctx context.Context, id, hospitalID primitive.ObjectID) error {
	return r.Update(ctx, id, map[string]interface{}{"destination_hospital_id": hospitalID})
}

func (r *incidentRepository) GetIncomingForHospital(ctx context.Context, hospitalID primitive.ObjectID) ([]*models.Incident, error) {
	filter := bson.M{
		"destination_hospital_id": hospitalID,
		"status": bson.M{"$in": []models.IncidentStatus{
			models.IncidentStatusAssigned,
			models.IncidentStatusPickedUp,
		}},
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, fmt.Errorf("failed to query incoming incidents: %w", err)
	}
	defer cursor.Close(ctx)

	var incidents []*models.Incident
	if err := cursor.All(ctx, &incidents); err != nil {
		return nil, fmt.Errorf("failed to decode incoming incidents: %w", err)
	}
	return incidents, nil
}

func (r *incidentRepository) CountActive(ctx context.Context) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{
		"status": bson.M{"$in": []models.IncidentStatus{
			models.IncidentStatusPending,
			models.IncidentStatusAssigned,
			models.IncidentStatusPickedUp,
		}},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count active incidents: %w", err)
	}
	return count, nil
}
