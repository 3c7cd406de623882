package reviews

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	Upsert(ctx context.Context, r Review) error
	GetByBooking(ctx context.Context, bookingID string) (Review, error)
	ListForProvider(ctx context.Context, providerID string, limit, offset int64) ([]Review, error)
	ListForCustomer(ctx context.Context, customerID string) ([]Review, error)
	RatingCounts(ctx context.Context, providerID string) (map[int]int64, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

// Upsert keys on booking_id so a booking never has more than one review.
// An empty review text leaves any earlier text in place.
func (r *MongoRepository) Upsert(ctx context.Context, rv Review) error {
	set := bson.M{
		"provider_id":   rv.ProviderID,
		"customer_id":   rv.CustomerID,
		"customer_name": rv.CustomerName,
		"service_type":  rv.ServiceType,
		"rating":        rv.Rating,
		"updated_at":    rv.UpdatedAt,
	}
	if rv.Review != "" {
		set["review"] = rv.Review
	}
	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID().Hex(),
			"created_at": rv.UpdatedAt,
		},
	}
	_, err := r.col.UpdateOne(ctx, bson.M{"booking_id": rv.BookingID}, update, options.Update().SetUpsert(true))
	return err
}

func (r *MongoRepository) GetByBooking(ctx context.Context, bookingID string) (Review, error) {
	var rv Review
	if err := r.col.FindOne(ctx, bson.M{"booking_id": bookingID}).Decode(&rv); err != nil {
		return Review{}, err
	}
	return rv, nil
}

func (r *MongoRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]Review, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Review
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoRepository) ListForProvider(ctx context.Context, providerID string, limit, offset int64) ([]Review, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(offset).
		SetLimit(limit)
	return r.find(ctx, bson.M{"provider_id": providerID}, opts)
}

func (r *MongoRepository) ListForCustomer(ctx context.Context, customerID string) ([]Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, bson.M{"customer_id": customerID}, opts)
}

func (r *MongoRepository) RatingCounts(ctx context.Context, providerID string) (map[int]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"provider_id": providerID}}},
		{{Key: "$group", Value: bson.M{"_id": "$rating", "count": bson.M{"$sum": 1}}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Rating int   `bson:"_id"`
		Count  int64 `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make(map[int]int64, len(rows))
	for _, row := range rows {
		out[row.Rating] = row.Count
	}
	return out, nil
}
