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

const hospitalCacheTTL = 5 * time.Minute

type hospitalRepository struct {
	collection *mongo.Collection
	cache      services.CacheService
}

func NewHospitalRepository(db *mongo.Database, cache services.CacheService) interfaces.HospitalRepository {
	return &hospitalRepository{
		collection: db.Collection("hospitals"),
		cache:      cache,
	}
}

func (r *hospitalRepository) Create(ctx context.Context, hospital *models.Hospital) error {
	hospital.ID = primitive.NewObjectID()

	_, err := r.collection.InsertOne(ctx, hospital)
	if err != nil {
		return fmt.Errorf("failed to create hospital: %w", err)
	}

	r.cacheHospital(ctx, hospital)
	return nil
}

func (r *hospitalRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Hospital, error) {
	if hospital := r.getFromCache(ctx, id.Hex()); hospital != nil {
		return hospital, nil
	}

	var hospital models.Hospital
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&hospital)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get hospital: %w", err)
	}

	r.cacheHospital(ctx, &hospital)
	return &hospital, nil
}

func (r *hospitalRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": updates})
	if err != nil {
		return fmt.Errorf("failed to update hospital: %w", err)
	}
	if result.MatchedCount == 0 {
		return interfaces.ErrNotFound
	}

	r.invalidateCache(ctx, id.Hex())
	return nil
}

func (r *hospitalRepository) List(ctx context.Context, onlyAvailable bool) ([]*models.Hospital, error) {
	filter := bson.M{}
	if onlyAvailable {
		filter["is_available"] = true
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.M{"name": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list hospitals: %w", err)
	}
	defer cursor.Close(ctx)

	var hospitals []*models.Hospital
	if err := cursor.All(ctx, &hospitals); err != nil {
		return nil, fmt.Errorf("failed to decode hospitals: %w", err)
	}
	return hospitals, nil
}

func (r *hospitalRepository) GetNearby(ctx context.Context, lat, lng, radiusKm float64, limit int, excludeIDs []primitive.ObjectID) ([]*models.Hospital, error) {
	filter := bson.M{
		"is_available": true,
		"location": bson.M{
			"$near": bson.M{
				"$geometry": bson.M{
					"type":        "Point",
					"coordinates": []float64{lng, lat},
				},
				"$maxDistance": radiusKm * 1000,
			},
		},
	}
	if len(excludeIDs) > 0 {
		filter["_id"] = bson.M{"$nin": excludeIDs}
	}

	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query nearby hospitals: %w", err)
	}
	defer cursor.Close(ctx)

	var hospitals []*models.Hospital
	if err := cursor.All(ctx, &hospitals); err != nil {
		return nil, fmt.Errorf("failed to decode nearby hospitals: %w", err)
	}
	return hospitals, nil
}

func (r *hospitalRepository) SetAvailability(ctx context.Context, id primitive.ObjectID, available bool) error {
	return r.Update(ctx, id, map[string]interface{}{"is_available": available})
}

func (r *hospitalRepository) AddBloodAlert(ctx context.Context, hospitalID primitive.ObjectID, alert *models.BloodAlert) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": hospitalID},
		bson.M{
			"$push": bson.M{"blood_alerts": alert},
			"$set":  bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to add blood alert: %w", err)
	}
	if result.MatchedCount == 0 {
		return interfaces.ErrNotFound
	}

	r.invalidateCache(ctx, hospitalID.Hex())
	return nil
}

func (r *hospitalRepository) RespondBloodAlert(ctx context.Context, hospitalID primitive.ObjectID, alertID string, status models.BloodAlertStatus, reason string) (*models.BloodAlert, error) {
	now := time.Now()

	result := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": hospitalID, "blood_alerts.id": alertID},
		bson.M{"$set": bson.M{
			"blood_alerts.$.status":          status,
			"blood_alerts.$.responded_at":    now,
			"blood_alerts.$.response_reason": reason,
			"updated_at":                     now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var hospital models.Hospital
	if err := result.Decode(&hospital); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to respond to blood alert: %w", err)
	}

	r.invalidateCache(ctx, hospitalID.Hex())

	for i := range hospital.BloodAlerts {
		if hospital.BloodAlerts[i].ID == alertID {
			alert := hospital.BloodAlerts[i]
			return &alert, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *hospitalRepository) DecrementBloodInventory(ctx context.Context, hospitalID primitive.ObjectID, bloodType models.BloodType, units float64) error {
	field := fmt.Sprintf("blood_inventory.%s", bloodType)

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": hospitalID},
		bson.M{
			"$inc": bson.M{field: -units},
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to decrement blood inventory: %w", err)
	}
	if result.MatchedCount == 0 {
		return interfaces.ErrNotFound
	}

	// Floor at zero; concurrent accepts can overshoot the stock.
	_, err = r.collection.UpdateOne(ctx,
		bson.M{"_id": hospitalID, field: bson.M{"$lt": 0}},
		bson.M{"$set": bson.M{field: float64(0)}},
	)
	if err != nil {
		return fmt.Errorf("failed to floor blood inventory: %w", err)
	}

	r.invalidateCache(ctx, hospitalID.Hex())
	return nil
}

func (r *hospitalRepository) cacheHospital(ctx context.Context, hospital *models.Hospital) {
	if r.cache == nil {
		return
	}
	_ = r.cache.Set(ctx, "hospital:"+hospital.ID.Hex(), hospital, hospitalCacheTTL)
}

func (r *hospitalRepository) getFromCache(ctx context.Context, id string) *models.Hospital {
	if r.cache == nil {
		return nil
	}
	var hospital models.Hospital
	if err := r.cache.Get(ctx, "hospital:"+id, &hospital); err != nil {
		return nil
	}
	return &hospital
}

func (r *hospitalRepository) invalidateCache(ctx context.Context, id string) {
	if r.cache == nil {
		return
	}
	_ = r.cache.Delete(ctx, "hospital:"+id)
}
