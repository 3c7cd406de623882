package users

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ayudabesh-backend/internal/auth"
	"ayudabesh-backend/internal/notifications"
)

type ProviderFilter struct {
	Status   string // pending, verified or empty for every provider
	Active   bool   // excludes disabled accounts
	Service  string
	Location string
}

const (
	ProviderStatusPending  = "pending"
	ProviderStatusVerified = "verified"
)

type Disable struct {
	At     time.Time
	Until  *time.Time
	Reason string
	By     string
}

type Repository interface {
	Create(ctx context.Context, u User) error
	GetByID(ctx context.Context, id string) (User, error)
	FindForLogin(ctx context.Context, username, role string) (User, error)
	FindByIdentifier(ctx context.Context, identifier, role string) (User, error)
	ExistsBy(ctx context.Context, field, value, excludeID string) (bool, error)
	ListProviders(ctx context.Context, filter ProviderFilter) ([]User, error)
	ListByRole(ctx context.Context, role string) ([]User, error)
	ListDeletionRequests(ctx context.Context) ([]User, error)
	SetVerified(ctx context.Context, id string, at time.Time) error
	SetRejected(ctx context.Context, id, reason string, at time.Time) error
	Disable(ctx context.Context, id string, d Disable) error
	Enable(ctx context.Context, id string) error
	MarkDeletionRequested(ctx context.Context, id, reason string, at time.Time) error
	RejectDeletion(ctx context.Context, id, reason string, at time.Time) error
	Delete(ctx context.Context, id, role string) error
	SetRating(ctx context.Context, id string, rating float64) error
	UpdateProfile(ctx context.Context, id string, fields map[string]interface{}, at time.Time) error
	UpdatePassword(ctx context.Context, id, hash string, at time.Time) error
	EnableExpired(ctx context.Context, now time.Time) (int64, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

var withoutPassword = bson.M{"password": 0}

func (r *MongoRepository) Create(ctx context.Context, u User) error {
	_, err := r.col.InsertOne(ctx, u)
	return err
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (User, error) {
	var u User
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (r *MongoRepository) FindForLogin(ctx context.Context, username, role string) (User, error) {
	var u User
	if err := r.col.FindOne(ctx, bson.M{"username": username, "role": role}).Decode(&u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (r *MongoRepository) FindByIdentifier(ctx context.Context, identifier, role string) (User, error) {
	query := bson.M{
		"role": role,
		"$or": bson.A{
			bson.M{"email": identifier},
			bson.M{"username": identifier},
			bson.M{"phone": identifier},
			bson.M{"phone": normalizePhone(identifier)},
		},
	}
	var u User
	if err := r.col.FindOne(ctx, query).Decode(&u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (r *MongoRepository) ExistsBy(ctx context.Context, field, value, excludeID string) (bool, error) {
	query := bson.M{field: value}
	if excludeID != "" {
		query["_id"] = bson.M{"$ne": excludeID}
	}
	n, err := r.col.CountDocuments(ctx, query, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *MongoRepository) ListProviders(ctx context.Context, filter ProviderFilter) ([]User, error) {
	query := bson.M{"role": auth.RoleProvider}
	switch filter.Status {
	case ProviderStatusPending:
		query["is_verified"] = bson.M{"$ne": true}
		query["is_rejected"] = bson.M{"$ne": true}
	case ProviderStatusVerified:
		query["is_verified"] = true
	}
	if filter.Active {
		query["account_disabled"] = bson.M{"$ne": true}
	}
	if filter.Service != "" {
		query["services_offered"] = filter.Service
	}
	if filter.Location != "" {
		query["location"] = containsFold(filter.Location)
	}
	return r.find(ctx, query, bson.D{{Key: "created_at", Value: -1}})
}

func (r *MongoRepository) ListByRole(ctx context.Context, role string) ([]User, error) {
	return r.find(ctx, bson.M{"role": role}, bson.D{{Key: "created_at", Value: 1}})
}

func (r *MongoRepository) ListDeletionRequests(ctx context.Context) ([]User, error) {
	return r.find(ctx, bson.M{"deletion_requested": true, "account_disabled": true},
		bson.D{{Key: "deletion_requested_at", Value: -1}})
}

func (r *MongoRepository) find(ctx context.Context, query bson.M, sort bson.D) ([]User, error) {
	opts := options.Find().SetSort(sort).SetProjection(withoutPassword)
	cursor, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]User, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// updateOne reports mongo.ErrNoDocuments when the filter matched nothing.
func (r *MongoRepository) updateOne(ctx context.Context, filter, update bson.M) error {
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *MongoRepository) SetVerified(ctx context.Context, id string, at time.Time) error {
	return r.updateOne(ctx,
		bson.M{"_id": id, "role": auth.RoleProvider},
		bson.M{
			"$set":   bson.M{"is_verified": true, "is_rejected": false, "verified_at": at, "updated_at": at},
			"$unset": bson.M{"rejection_reason": "", "rejected_at": ""},
		},
	)
}

func (r *MongoRepository) SetRejected(ctx context.Context, id, reason string, at time.Time) error {
	return r.updateOne(ctx,
		bson.M{"_id": id, "role": auth.RoleProvider},
		bson.M{
			"$set": bson.M{
				"is_verified":      false,
				"is_rejected":      true,
				"rejection_reason": reason,
				"rejected_at":      at,
				"updated_at":       at,
			},
			"$unset": bson.M{"verified_at": ""},
		},
	)
}

func (r *MongoRepository) Disable(ctx context.Context, id string, d Disable) error {
	set := bson.M{
		"account_disabled": true,
		"disabled_at":      d.At,
		"disabled_reason":  d.Reason,
		"disabled_by":      d.By,
		"updated_at":       d.At,
	}
	update := bson.M{"$set": set}
	if d.Until != nil {
		set["disabled_until"] = *d.Until
	} else {
		update["$unset"] = bson.M{"disabled_until": ""}
	}
	return r.updateOne(ctx, bson.M{"_id": id}, update)
}

var clearedDisable = bson.M{"disabled_at": "", "disabled_until": "", "disabled_reason": "", "disabled_by": ""}

func (r *MongoRepository) Enable(ctx context.Context, id string) error {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":   bson.M{"account_disabled": false, "updated_at": time.Now().UTC()},
		"$unset": clearedDisable,
	})
}

func (r *MongoRepository) MarkDeletionRequested(ctx context.Context, id, reason string, at time.Time) error {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"deletion_requested":    true,
			"deletion_reason":       reason,
			"deletion_requested_at": at,
			"account_disabled":      true,
			"disabled_at":           at,
			"disabled_reason":       "Account deletion requested",
			"updated_at":            at,
		},
		"$unset": bson.M{"disabled_until": "", "deletion_rejected": "", "deletion_rejection_reason": ""},
	})
}

func (r *MongoRepository) RejectDeletion(ctx context.Context, id, reason string, at time.Time) error {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"account_disabled":          false,
			"deletion_requested":        false,
			"deletion_rejected":         true,
			"deletion_rejection_reason": reason,
			"updated_at":                at,
		},
		"$unset": bson.M{
			"deletion_reason":       "",
			"deletion_requested_at": "",
			"disabled_at":           "",
			"disabled_until":        "",
			"disabled_reason":       "",
			"disabled_by":           "",
		},
	})
}

// Delete removes a user. An empty role matches any role.
func (r *MongoRepository) Delete(ctx context.Context, id, role string) error {
	filter := bson.M{"_id": id}
	if role != "" {
		filter["role"] = role
	}
	res, err := r.col.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *MongoRepository) SetRating(ctx context.Context, id string, rating float64) error {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"rating": rating}})
}

func (r *MongoRepository) UpdateProfile(ctx context.Context, id string, fields map[string]interface{}, at time.Time) error {
	set := bson.M{"updated_at": at}
	for k, v := range fields {
		set[k] = v
	}
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
}

func (r *MongoRepository) UpdatePassword(ctx context.Context, id, hash string, at time.Time) error {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"password": hash, "updated_at": at}})
}

// EnableExpired lifts temporary disables whose end has passed. Accounts
// waiting on a deletion decision stay locked.
func (r *MongoRepository) EnableExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.col.UpdateMany(ctx,
		bson.M{
			"account_disabled":   true,
			"deletion_requested": bson.M{"$ne": true},
			"disabled_until":     bson.M{"$lte": now},
		},
		bson.M{
			"$set":   bson.M{"account_disabled": false, "updated_at": now},
			"$unset": clearedDisable,
		},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Contact resolves a user's e-mail recipient for outbound mail.
func (r *MongoRepository) Contact(ctx context.Context, id string) (notifications.Recipient, error) {
	var u User
	opts := options.FindOne().SetProjection(bson.M{"email": 1, "full_name": 1, "username": 1})
	if err := r.col.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&u); err != nil {
		return notifications.Recipient{}, err
	}
	return notifications.Recipient{Email: u.Email, Name: u.DisplayName()}, nil
}

func containsFold(value string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(value), "$options": "i"}
}
