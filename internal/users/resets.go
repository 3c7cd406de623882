package users

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type PasswordReset struct {
	ID               string    `bson:"_id,omitempty"`
	UserID           string    `bson:"user_id"`
	VerificationCode string    `bson:"verification_code"`
	ResetToken       string    `bson:"reset_token"`
	Identifier       string    `bson:"identifier"`
	Used             bool      `bson:"used"`
	CreatedAt        time.Time `bson:"created_at"`
	ExpiresAt        time.Time `bson:"expires_at"`
}

type ResetStore interface {
	Replace(ctx context.Context, reset PasswordReset) error
	Consume(ctx context.Context, userID, token, code string, now time.Time) error
}

type MongoResetStore struct {
	col *mongo.Collection
}

func NewResetStore(col *mongo.Collection) *MongoResetStore {
	return &MongoResetStore{col: col}
}

// Replace drops the user's outstanding codes before storing the new one.
func (s *MongoResetStore) Replace(ctx context.Context, reset PasswordReset) error {
	if _, err := s.col.DeleteMany(ctx, bson.M{"user_id": reset.UserID, "used": false}); err != nil {
		return err
	}
	_, err := s.col.InsertOne(ctx, reset)
	return err
}

// Consume marks a matching, unused and unexpired code as used in one step.
func (s *MongoResetStore) Consume(ctx context.Context, userID, token, code string, now time.Time) error {
	res, err := s.col.UpdateOne(ctx,
		bson.M{
			"user_id":           userID,
			"reset_token":       token,
			"verification_code": code,
			"used":              false,
			"expires_at":        bson.M{"$gt": now},
		},
		bson.M{"$set": bson.M{"used": true, "used_at": now}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
