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

type ambulanceRepository struct {
	collection *mongo.Collection
	cache      services.CacheService
}

func NewAmbulanceRepository(db *mongo.Database, cache services.CacheService) interfaces.AmbulanceRepository {
	return &ambulanceRepository{
		collection: db.Collection("ambulances"),
		cache:      cache,
	}
}

func (r *ambulanceRepository) Create(ctx context.Context, ambulance *models.Ambulance) error {
	ambulance.ID = primitive.NewObjectID()

	_, err := r.collection.InsertOne(ctx, ambulance)
	if err != nil {
		return fmt.Errorf("failed to create ambulance: %w", err)
	}
	return nil
}

func (r *ambulanceRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ambulance, error) {
	var ambulance models.Ambulance
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&ambulance)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ambulance: %w", err)
	}
	return &ambulance, nil
}

func (r *ambulanceRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": updates})
	if err != nil {
		return fmt.Errorf("failed to update ambulance: %w", err)
	}
	if result.MatchedCount == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

func (r *ambulanceRepository) List(ctx context.Context) ([]*models.Ambulance, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"call_sign": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list ambulances: %w", err)
	}
	defer cursor.Close(ctx)

	var ambulances []*models.Ambulance
	if err := cursor.All(ctx, &ambulances); err != nil {
		return nil, fmt.Errorf("failed to decode ambulances: %w", err)
	}
	return ambulances, nil
}

func (r *ambulanceRepository) GetNearbyIdle(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]*models.Ambulance, error) {
	filter := bson.M{
		"status": models.AmbulanceStatusIdle,
		"current_location": bson.M{
			"$near": bson.M{
				"$geometry": bson.M{
					"type":        "Point",
					"coordinates": []float64{lng, lat},
				},
				"$maxDistance": radiusKm * 1000,
			},
		},
	}

	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query nearby idle ambulances: %w", err)
	}
	defer cursor.Close(ctx)

	var ambulances []*models.Ambulance
	if err := cursor.All(ctx, &ambulances); err != nil {
		return nil, fmt.Errorf("failed to decode nearby ambulances: %w", err)
	}
	return ambulances, nil
}

func (r *ambulanceRepository) UpdateLocation(ctx context.Context, id primitive.ObjectID, location models.Location) error {
	now := time.Now()

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"current_location":     location,
			"last_location_update": now,
			"updated_at":           now,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update ambulance location: %w", err)
	}
	if result.MatchedCount == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

// Claim is the contended write of the whole system: the status filter
// in the query makes it a compare-and-swap, so of any number of
// concurrent claimants exactly one sees a matched document.
func (r *ambulanceRepository) Claim(ctx context.Context, id, incidentID primitive.ObjectID) (*models.Ambulance, error) {
	result := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.AmbulanceStatusIdle},
		bson.M{
			"$set": bson.M{
				"status":              models.AmbulanceStatusDispatched,
				"current_incident_id": incidentID,
				"updated_at":          time.Now(),
			},
			"$inc": bson.M{"version": 1},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var ambulance models.Ambulance
	if err := result.Decode(&ambulance); err != nil {
		if err == mongo.ErrNoDocuments {
			// The unit exists but is not idle, or does not exist at all.
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, interfaces.ErrConflict
		}
		return nil, fmt.Errorf("failed to claim ambulance: %w", err)
	}
	return &ambulance, nil
}

func (r *ambulanceRepository) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.AmbulanceStatus, updates map[string]interface{}) (*models.Ambulance, error) {
	set := bson.M{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range updates {
		set[k] = v
	}

	result := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{
			"$set": set,
			"$inc": bson.M{"version": 1},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var ambulance models.Ambulance
	if err := result.Decode(&ambulance); err != nil {
		if err == mongo.ErrNoDocuments {
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, interfaces.ErrConflict
		}
		return nil, fmt.Errorf("failed to transition ambulance status: %w", err)
	}
	return &ambulance, nil
}

func (r *ambulanceRepository) CountByStatus(ctx context.Context, status models.AmbulanceStatus) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"status": status})
	if err != nil {
		return 0, fmt.Errorf("failed to count ambulances: %w", err)
	}
	return count, nil
}
