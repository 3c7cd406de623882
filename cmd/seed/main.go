package main

import (
	"context"
	"log"
	"os"
	"time"

	"ayudabesh-backend/internal/auth"
	"ayudabesh-backend/internal/catalog"
	"ayudabesh-backend/internal/config"
	"ayudabesh-backend/internal/db"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type seedAdmin struct {
	Username    string
	Email       string
	FullName    string
	PasswordEnv string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Disconnect(context.Background())

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		log.Fatal(err)
	}

	added, err := catalog.NewRepository(cols.Services).Seed(ctx, catalog.Prepare(catalog.Defaults, time.Now()))
	if err != nil {
		log.Fatalf("seed services: %v", err)
	}
	log.Printf("seed services: %d added", added)

	admins := []seedAdmin{
		{
			Username:    envOrDefault("ADMIN_USER", "admin"),
			Email:       envOrDefault("ADMIN_EMAIL", ""),
			FullName:    envOrDefault("ADMIN_FULL_NAME", "Administrator"),
			PasswordEnv: "ADMIN_PASSWORD",
		},
		{
			Username:    envOrDefault("ADMIN_USER_2", "admin2"),
			Email:       envOrDefault("ADMIN_EMAIL_2", ""),
			FullName:    envOrDefault("ADMIN_FULL_NAME_2", "Administrator"),
			PasswordEnv: "ADMIN_PASSWORD_2",
		},
	}

	for _, a := range admins {
		password := os.Getenv(a.PasswordEnv)
		if password == "" {
			log.Printf("seed admin: %s missing, skipping (%s)", a.Username, a.PasswordEnv)
			continue
		}
		if err := seedAdminUser(ctx, cols.Users, a, password); err != nil {
			log.Fatalf("seed admin error for %s: %v", a.Username, err)
		}
	}

	log.Println("seed completed")
}

// seedAdminUser creates the admin or resets its password and role.
func seedAdminUser(ctx context.Context, col *mongo.Collection, a seedAdmin, password string) error {
	if a.Username == "" {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	set := bson.M{
		"password":   hash,
		"role":       auth.RoleAdmin,
		"updated_at": now,
	}
	setOnInsert := bson.M{
		"_id":         primitive.NewObjectID().Hex(),
		"username":    a.Username,
		"full_name":   a.FullName,
		"is_verified": true,
		"rating":      0,
		"created_at":  now,
	}
	if a.Email != "" {
		set["email"] = a.Email
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": setOnInsert,
	}
	_, err = col.UpdateOne(ctx, bson.M{"username": a.Username}, update, options.Update().SetUpsert(true))
	return err
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
