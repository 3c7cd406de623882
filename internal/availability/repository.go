package availability

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	GetByProvider(ctx context.Context, providerID string) (Availability, error)
	Upsert(ctx context.Context, a Availability, at time.Time) (bool, error)
	Delete(ctx context.Context, providerID string) error
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) GetByProvider(ctx context.Context, providerID string) (Availability, error) {
	var a Availability
	if err := r.col.FindOne(ctx, bson.M{"provider_id": providerID}).Decode(&a); err != nil {
		return Availability{}, err
	}
	return a, nil
}

// Upsert replaces the provider's record and reports whether it was created.
func (r *MongoRepository) Upsert(ctx context.Context, a Availability, at time.Time) (bool, error) {
	update := bson.M{
		"$set": bson.M{
			"schedule":       a.Schedule,
			"specific_dates": a.SpecificDates,
			"timezone":       a.Timezone,
			"updated_at":     at,
		},
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID().Hex(),
			"created_at": at,
		},
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"provider_id": a.ProviderID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return false, err
	}
	return res.UpsertedCount > 0, nil
}

func (r *MongoRepository) Delete(ctx context.Context, providerID string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"provider_id": providerID})
	return err
}
