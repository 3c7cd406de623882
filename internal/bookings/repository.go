package bookings

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ayudabesh-backend/internal/users"
)

// Transition is one guarded status change. The update only applies when the
// booking is owned by the given party and currently sits in one of From.
type Transition struct {
	ID         string
	ProviderID string
	CustomerID string
	From       []string
	To         string
	At         time.Time
	Reason     string
	By         string
}

func (t Transition) filter() bson.M {
	f := bson.M{"_id": t.ID, "status": bson.M{"$in": t.From}}
	if t.ProviderID != "" {
		f["provider_id"] = t.ProviderID
	}
	if t.CustomerID != "" {
		f["customer_id"] = t.CustomerID
	}
	return f
}

func (t Transition) update() bson.M {
	set := bson.M{"status": t.To}
	switch t.To {
	case StatusAccepted:
		set["accepted_at"] = t.At
	case StatusRejected:
		set["rejected_at"] = t.At
		set["rejection_reason"] = t.Reason
	case StatusCompleted:
		set["completed_at"] = t.At
	case StatusCancelled:
		set["cancelled_at"] = t.At
		set["cancelled_by"] = t.By
		set["cancellation_reason"] = t.Reason
	}
	return bson.M{"$set": set}
}

type Repository interface {
	Create(ctx context.Context, b Booking) error
	GetByID(ctx context.Context, id string) (Booking, error)
	Transition(ctx context.Context, t Transition) (Booking, error)
	SetFinalPrice(ctx context.Context, id, providerID string, price float64, at time.Time) (Booking, error)
	SetRating(ctx context.Context, id, customerID string, rating int, review string, at time.Time) (Booking, error)
	ListForCustomer(ctx context.Context, customerID string) ([]Booking, error)
	ListForProvider(ctx context.Context, providerID string) ([]Booking, error)
	ListForProviderBetween(ctx context.Context, providerID string, from, to time.Time) ([]Booking, error)
	ProviderRatings(ctx context.Context, providerID string) ([]int, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, b Booking) error {
	_, err := r.col.InsertOne(ctx, b)
	return err
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (Booking, error) {
	var b Booking
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		return Booking{}, err
	}
	return b, nil
}

// findAndUpdate applies update when filter matches and returns the new
// document. A failed predicate surfaces as mongo.ErrNoDocuments.
func (r *MongoRepository) findAndUpdate(ctx context.Context, filter, update bson.M) (Booking, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var b Booking
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&b); err != nil {
		return Booking{}, err
	}
	return b, nil
}

func (r *MongoRepository) Transition(ctx context.Context, t Transition) (Booking, error) {
	return r.findAndUpdate(ctx, t.filter(), t.update())
}

func (r *MongoRepository) SetFinalPrice(ctx context.Context, id, providerID string, price float64, at time.Time) (Booking, error) {
	return r.findAndUpdate(ctx, priceFilter(id, providerID), priceUpdate(price, at))
}

func priceFilter(id, providerID string) bson.M {
	return bson.M{
		"_id":         id,
		"provider_id": providerID,
		"status":      bson.M{"$in": activeStatuses},
	}
}

func priceUpdate(price float64, at time.Time) bson.M {
	return bson.M{"$set": bson.M{"final_price": price, "price_updated_at": at}}
}

// SetRating overwrites any earlier rating. An empty review keeps the old text.
func (r *MongoRepository) SetRating(ctx context.Context, id, customerID string, rating int, review string, at time.Time) (Booking, error) {
	return r.findAndUpdate(ctx, ratingFilter(id, customerID), ratingUpdate(rating, review, at))
}

func ratingFilter(id, customerID string) bson.M {
	return bson.M{"_id": id, "customer_id": customerID, "status": StatusCompleted}
}

func ratingUpdate(rating int, review string, at time.Time) bson.M {
	set := bson.M{"rating": rating, "rated_at": at}
	if review != "" {
		set["review"] = review
	}
	return bson.M{"$set": set}
}

func (r *MongoRepository) list(ctx context.Context, filter bson.M, sort bson.D) ([]Booking, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Booking
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var newestFirst = bson.D{{Key: "created_at", Value: -1}}

func (r *MongoRepository) ListForCustomer(ctx context.Context, customerID string) ([]Booking, error) {
	return r.list(ctx, bson.M{"customer_id": customerID}, newestFirst)
}

func (r *MongoRepository) ListForProvider(ctx context.Context, providerID string) ([]Booking, error) {
	return r.list(ctx, bson.M{"provider_id": providerID}, newestFirst)
}

// ListForProviderBetween returns bookings scheduled in [from, to).
func (r *MongoRepository) ListForProviderBetween(ctx context.Context, providerID string, from, to time.Time) ([]Booking, error) {
	filter := bson.M{
		"provider_id":  providerID,
		"booking_time": bson.M{"$gte": from, "$lt": to},
	}
	return r.list(ctx, filter, bson.D{{Key: "booking_time", Value: 1}})
}

func (r *MongoRepository) ProviderRatings(ctx context.Context, providerID string) ([]int, error) {
	filter := bson.M{
		"provider_id": providerID,
		"status":      StatusCompleted,
		"rating":      bson.M{"$ne": nil},
	}
	opts := options.Find().SetProjection(bson.M{"rating": 1})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Rating *int `bson:"rating"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]int, 0, len(rows))
	for _, row := range rows {
		if row.Rating != nil {
			out = append(out, *row.Rating)
		}
	}
	return out, nil
}

func (r *MongoRepository) CountActiveForUser(ctx context.Context, userID string) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{
		"$or":    bson.A{bson.M{"customer_id": userID}, bson.M{"provider_id": userID}},
		"status": bson.M{"$in": activeStatuses},
	})
}

func (r *MongoRepository) CountForUser(ctx context.Context, userID string) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{
		"$or": bson.A{bson.M{"customer_id": userID}, bson.M{"provider_id": userID}},
	})
}

func (r *MongoRepository) CountForProvider(ctx context.Context, providerID string) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"provider_id": providerID})
}

func (r *MongoRepository) CountCompletedForProvider(ctx context.Context, providerID string) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"provider_id": providerID, "status": StatusCompleted})
}

var _ users.BookingCounter = (*MongoRepository)(nil)
