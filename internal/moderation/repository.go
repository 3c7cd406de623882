package moderation

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store interface {
	InsertDispute(ctx context.Context, d Dispute) error
	GetDispute(ctx context.Context, id string) (Dispute, error)
	ListDisputes(ctx context.Context, providerID string) ([]Dispute, error)
	AppendResponse(ctx context.Context, id string, r Response) error
	ResolveDispute(ctx context.Context, id, by, notes string, at time.Time) (Dispute, error)

	InsertReport(ctx context.Context, r Report) error
	GetReport(ctx context.Context, id string) (Report, error)
	ListReports(ctx context.Context, providerID string) ([]Report, error)
	CheckReport(ctx context.Context, id, by, notes string, at time.Time) error
}

type MongoStore struct {
	disputes *mongo.Collection
	reports  *mongo.Collection
}

func NewStore(disputes, reports *mongo.Collection) *MongoStore {
	return &MongoStore{disputes: disputes, reports: reports}
}

var newestFirst = options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

// scope limits a listing to one provider. An empty id lists everything.
func scope(providerID string) bson.M {
	if providerID == "" {
		return bson.M{}
	}
	return bson.M{"provider_id": providerID}
}

func (s *MongoStore) InsertDispute(ctx context.Context, d Dispute) error {
	_, err := s.disputes.InsertOne(ctx, d)
	return err
}

func (s *MongoStore) GetDispute(ctx context.Context, id string) (Dispute, error) {
	var d Dispute
	if err := s.disputes.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return Dispute{}, err
	}
	return d, nil
}

func (s *MongoStore) ListDisputes(ctx context.Context, providerID string) ([]Dispute, error) {
	cur, err := s.disputes.Find(ctx, scope(providerID), newestFirst)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Dispute
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) AppendResponse(ctx context.Context, id string, r Response) error {
	res, err := s.disputes.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$push": bson.M{"responses": r}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ResolveDispute only applies to an open dispute.
func (s *MongoStore) ResolveDispute(ctx context.Context, id, by, notes string, at time.Time) (Dispute, error) {
	filter := bson.M{"_id": id, "status": DisputeOpen}
	update := bson.M{"$set": bson.M{
		"status":           DisputeResolved,
		"resolved_at":      at,
		"resolved_by":      by,
		"resolution_notes": notes,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var d Dispute
	if err := s.disputes.FindOneAndUpdate(ctx, filter, update, opts).Decode(&d); err != nil {
		return Dispute{}, err
	}
	return d, nil
}

func (s *MongoStore) InsertReport(ctx context.Context, r Report) error {
	_, err := s.reports.InsertOne(ctx, r)
	return err
}

func (s *MongoStore) GetReport(ctx context.Context, id string) (Report, error) {
	var r Report
	if err := s.reports.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		return Report{}, err
	}
	return r, nil
}

func (s *MongoStore) ListReports(ctx context.Context, providerID string) ([]Report, error) {
	cur, err := s.reports.Find(ctx, scope(providerID), newestFirst)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Report
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) CheckReport(ctx context.Context, id, by, notes string, at time.Time) error {
	res, err := s.reports.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"checked":     true,
		"status":      ReportChecked,
		"checked_at":  at,
		"checked_by":  by,
		"check_notes": notes,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
