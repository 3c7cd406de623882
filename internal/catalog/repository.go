package catalog

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	List(ctx context.Context) ([]Category, error)
	Seed(ctx context.Context, items []Category) (int64, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) List(ctx context.Context) ([]Category, error) {
	cursor, err := r.col.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]Category, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Seed inserts the categories that do not exist yet and reports how many were added.
func (r *MongoRepository) Seed(ctx context.Context, items []Category) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}
	models := make([]mongo.WriteModel, 0, len(items))
	for _, s := range items {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"category": s.Category}).
			SetUpdate(bson.M{"$setOnInsert": s}).
			SetUpsert(true))
	}
	res, err := r.col.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, err
	}
	return res.UpsertedCount, nil
}
