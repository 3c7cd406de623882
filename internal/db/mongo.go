package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Collections struct {
	Users          *mongo.Collection
	Bookings       *mongo.Collection
	Reviews        *mongo.Collection
	Availability   *mongo.Collection
	Notifications  *mongo.Collection
	Disputes       *mongo.Collection
	Reports        *mongo.Collection
	PasswordResets *mongo.Collection
	Services       *mongo.Collection
}

func Connect(ctx context.Context, uri, dbName string) (*mongo.Client, *Collections, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, nil, err
	}

	db := client.Database(dbName)

	cols := &Collections{
		Users:          db.Collection("users"),
		Bookings:       db.Collection("bookings"),
		Reviews:        db.Collection("reviews"),
		Availability:   db.Collection("availability"),
		Notifications:  db.Collection("notifications"),
		Disputes:       db.Collection("disputes"),
		Reports:        db.Collection("reports"),
		PasswordResets: db.Collection("password_resets"),
		Services:       db.Collection("services"),
	}

	return client, cols, nil
}

func EnsureIndexes(ctx context.Context, cols *Collections) error {
	indexTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	plan := []struct {
		col     *mongo.Collection
		indexes []mongo.IndexModel
	}{
		{cols.Users, []mongo.IndexModel{
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
			{Keys: bson.D{{Key: "role", Value: 1}, {Key: "is_verified", Value: 1}}},
			{Keys: bson.D{{Key: "account_disabled", Value: 1}, {Key: "disabled_until", Value: 1}}},
		}},
		{cols.Bookings, []mongo.IndexModel{
			{Keys: bson.D{{Key: "provider_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "provider_id", Value: 1}, {Key: "booking_time", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		}},
		{cols.Reviews, []mongo.IndexModel{
			{Keys: bson.D{{Key: "booking_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "provider_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "customer_id", Value: 1}}},
		}},
		{cols.Availability, []mongo.IndexModel{
			{Keys: bson.D{{Key: "provider_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
		{cols.Notifications, []mongo.IndexModel{
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "read", Value: 1}}},
		}},
		{cols.Disputes, []mongo.IndexModel{
			{Keys: bson.D{{Key: "provider_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		}},
		{cols.Reports, []mongo.IndexModel{
			{Keys: bson.D{{Key: "provider_id", Value: 1}, {Key: "created_at", Value: -1}}},
		}},
		{cols.PasswordResets, []mongo.IndexModel{
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "used", Value: 1}}},
			// expired reset codes are purged by mongod itself
			{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		}},
		{cols.Services, []mongo.IndexModel{
			{Keys: bson.D{{Key: "category", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
	}

	for _, p := range plan {
		if _, err := p.col.Indexes().CreateMany(indexTimeout, p.indexes); err != nil {
			return err
		}
	}
	return nil
}
