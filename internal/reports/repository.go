package reports

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ayudabesh-backend/internal/bookings"
	"ayudabesh-backend/internal/users"
)

// BookingFilter selects bookings. Zero fields are ignored; time bounds are [From, To).
type BookingFilter struct {
	CustomerID    string
	ProviderID    string
	Status        string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	CompletedFrom *time.Time
	CompletedTo   *time.Time
}

func timeRange(from, to *time.Time) bson.M {
	if from == nil && to == nil {
		return nil
	}
	r := bson.M{}
	if from != nil {
		r["$gte"] = *from
	}
	if to != nil {
		r["$lt"] = *to
	}
	return r
}

func (f BookingFilter) bson() bson.M {
	m := bson.M{}
	if f.CustomerID != "" {
		m["customer_id"] = f.CustomerID
	}
	if f.ProviderID != "" {
		m["provider_id"] = f.ProviderID
	}
	if f.Status != "" {
		m["status"] = f.Status
	}
	if r := timeRange(f.CreatedFrom, f.CreatedTo); r != nil {
		m["created_at"] = r
	}
	if r := timeRange(f.CompletedFrom, f.CompletedTo); r != nil {
		m["completed_at"] = r
	}
	return m
}

// Totals summarises the bookings matched by a filter.
type Totals struct {
	Count     int64   `bson:"count"`
	Revenue   float64 `bson:"revenue"`
	Rated     int64   `bson:"rated"`
	RatingSum float64 `bson:"rating_sum"`
}

// Tally is one provider's booking counts.
type Tally struct {
	ProviderID string  `bson:"_id"`
	Completed  int64   `bson:"completed"`
	Pending    int64   `bson:"pending"`
	Accepted   int64   `bson:"accepted"`
	Earnings   float64 `bson:"earnings"`
	Rated      int64   `bson:"rated"`
	RatingSum  float64 `bson:"rating_sum"`
}

type UserFilter struct {
	Role     string
	Verified *bool
}

func (f UserFilter) bson() bson.M {
	m := bson.M{"role": f.Role}
	if f.Verified != nil {
		if *f.Verified {
			m["is_verified"] = true
		} else {
			m["is_verified"] = bson.M{"$ne": true}
		}
	}
	return m
}

type Store interface {
	Totals(ctx context.Context, f BookingFilter) (Totals, error)
	StatusCounts(ctx context.Context) (map[string]int64, error)
	FindBookings(ctx context.Context, f BookingFilter, sortBy string) ([]bookings.Booking, error)
	ProviderTallies(ctx context.Context) ([]Tally, error)

	CountUsers(ctx context.Context, f UserFilter) (int64, error)
	ListUsers(ctx context.Context, f UserFilter) ([]users.User, error)
	GetUser(ctx context.Context, id, role string) (users.User, error)
	UsersByID(ctx context.Context, ids []string) (map[string]users.User, error)

	CountDisputes(ctx context.Context, status string) (int64, error)
	ReviewCounts(ctx context.Context) (map[string]int64, error)
}

type MongoStore struct {
	bookings *mongo.Collection
	users    *mongo.Collection
	disputes *mongo.Collection
	reviews  *mongo.Collection
}

func NewStore(bookingsCol, usersCol, disputesCol, reviewsCol *mongo.Collection) *MongoStore {
	return &MongoStore{bookings: bookingsCol, users: usersCol, disputes: disputesCol, reviews: reviewsCol}
}

var (
	amount      = bson.M{"$ifNull": bson.A{"$final_price", "$price"}}
	isRated     = bson.M{"$gt": bson.A{bson.M{"$ifNull": bson.A{"$rating", 0}}, 0}}
	isCompleted = bson.M{"$eq": bson.A{"$status", bookings.StatusCompleted}}
)

func countIf(cond interface{}) bson.M {
	return bson.M{"$sum": bson.M{"$cond": bson.A{cond, 1, 0}}}
}

func sumIf(cond, value interface{}) bson.M {
	return bson.M{"$sum": bson.M{"$cond": bson.A{cond, value, 0}}}
}

func (s *MongoStore) Totals(ctx context.Context, f BookingFilter) (Totals, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: f.bson()}},
		{{Key: "$group", Value: bson.M{
			"_id":        nil,
			"count":      bson.M{"$sum": 1},
			"revenue":    bson.M{"$sum": amount},
			"rated":      countIf(isRated),
			"rating_sum": sumIf(isRated, "$rating"),
		}}},
	}
	cur, err := s.bookings.Aggregate(ctx, pipeline)
	if err != nil {
		return Totals{}, err
	}
	var rows []Totals
	if err := cur.All(ctx, &rows); err != nil {
		return Totals{}, err
	}
	if len(rows) == 0 {
		return Totals{}, nil
	}
	return rows[0], nil
}

func (s *MongoStore) StatusCounts(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	cur, err := s.bookings.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func (s *MongoStore) FindBookings(ctx context.Context, f BookingFilter, sortBy string) ([]bookings.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: sortBy, Value: -1}})
	cur, err := s.bookings.Find(ctx, f.bson(), opts)
	if err != nil {
		return nil, err
	}
	out := make([]bookings.Booking, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) ProviderTallies(ctx context.Context) ([]Tally, error) {
	ratedJob := bson.M{"$and": bson.A{isCompleted, isRated}}
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":        "$provider_id",
			"completed":  countIf(isCompleted),
			"pending":    countIf(bson.M{"$eq": bson.A{"$status", bookings.StatusPending}}),
			"accepted":   countIf(bson.M{"$eq": bson.A{"$status", bookings.StatusAccepted}}),
			"earnings":   sumIf(isCompleted, amount),
			"rated":      countIf(ratedJob),
			"rating_sum": sumIf(ratedJob, "$rating"),
		}}},
	}
	cur, err := s.bookings.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	out := make([]Tally, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var withoutPassword = options.Find().SetProjection(bson.M{"password": 0})

func (s *MongoStore) CountUsers(ctx context.Context, f UserFilter) (int64, error) {
	return s.users.CountDocuments(ctx, f.bson())
}

func (s *MongoStore) ListUsers(ctx context.Context, f UserFilter) ([]users.User, error) {
	cur, err := s.users.Find(ctx, f.bson(), withoutPassword)
	if err != nil {
		return nil, err
	}
	out := make([]users.User, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) GetUser(ctx context.Context, id, role string) (users.User, error) {
	var u users.User
	err := s.users.FindOne(ctx, bson.M{"_id": id, "role": role}, options.FindOne().SetProjection(bson.M{"password": 0})).Decode(&u)
	return u, err
}

func (s *MongoStore) UsersByID(ctx context.Context, ids []string) (map[string]users.User, error) {
	out := make(map[string]users.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, withoutPassword)
	if err != nil {
		return nil, err
	}
	var found []users.User
	if err := cur.All(ctx, &found); err != nil {
		return nil, err
	}
	for _, u := range found {
		out[u.ID] = u
	}
	return out, nil
}

func (s *MongoStore) CountDisputes(ctx context.Context, status string) (int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return s.disputes.CountDocuments(ctx, filter)
}

func (s *MongoStore) ReviewCounts(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$customer_id", "count": bson.M{"$sum": 1}}}},
	}
	cur, err := s.reviews.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		CustomerID string `bson:"_id"`
		Count      int64  `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.CustomerID] = row.Count
	}
	return out, nil
}
