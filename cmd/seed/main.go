package main

import (
	"context"
	"log"
	"os"
	"time"

	"sharpcut-backend/internal/auth"
	"sharpcut-backend/internal/config"
	"sharpcut-backend/internal/db"
	"sharpcut-backend/internal/models"
	"sharpcut-backend/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type seedService struct {
	Name            string
	Description     string
	Price           int
	DurationMinutes int
	LoyaltyPoints   int
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Disconnect(context.Background())

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		log.Fatal(err)
	}

	services := []seedService{
		{Name: "Haircut", Description: "Classic cut, wash and style.", Price: 3000, DurationMinutes: 30, LoyaltyPoints: 10},
		{Name: "Beard Trim", Description: "Shape and line up, hot towel finish.", Price: 1500, DurationMinutes: 15, LoyaltyPoints: 5},
		{Name: "Haircut & Beard", Description: "Full cut plus beard service.", Price: 4000, DurationMinutes: 45, LoyaltyPoints: 15},
		{Name: "Kids Cut", Description: "Cut for the under-12s.", Price: 2000, DurationMinutes: 30, LoyaltyPoints: 8},
		{Name: "Hot Towel Shave", Description: "Straight-razor shave with hot towels.", Price: 2500, DurationMinutes: 30, LoyaltyPoints: 10},
		{Name: "Buzz Cut", Description: "Single-guard clipper cut.", Price: 1500, DurationMinutes: 15, LoyaltyPoints: 5},
		{Name: "The Works", Description: "Cut, shave, wash and style.", Price: 5500, DurationMinutes: 60, LoyaltyPoints: 20},
	}

	for _, svc := range services {
		slug := utils.Slugify(svc.Name)
		filter := bson.M{"slug": slug}
		update := bson.M{
			"$setOnInsert": bson.M{
				"_id":             primitive.NewObjectID().Hex(),
				"name":            svc.Name,
				"slug":            slug,
				"description":     svc.Description,
				"price":           svc.Price,
				"durationMinutes": svc.DurationMinutes,
				"loyaltyPoints":   svc.LoyaltyPoints,
				"active":          true,
				"createdAt":       time.Now().In(cfg.Timezone),
			},
		}

		if _, err := cols.Services.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
			log.Fatalf("seed error for %s: %v", svc.Name, err)
		}
	}

	username := envOrDefault("ADMIN_USER", "admin")
	email := envOrDefault("ADMIN_EMAIL", "")
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		log.Printf("seed admin: ADMIN_PASSWORD missing, skipping %s", username)
	} else if err := seedAdminUser(ctx, cols, username, email, password, cfg.Timezone); err != nil {
		log.Fatalf("seed admin error for %s: %v", username, err)
	}

	log.Println("seed completed")
}

func seedAdminUser(ctx context.Context, cols *db.Collections, username, email, password string, loc *time.Location) error {
	if cols == nil || cols.Users == nil {
		return nil
	}
	if username == "" || password == "" {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	now := time.Now().In(loc)
	filter := bson.M{"username": username}
	set := bson.M{
		"passwordHash": hash,
		"role":         models.UserRoleAdmin,
		"updatedAt":    now,
	}
	if email != "" {
		set["email"] = email
	}
	setOnInsert := bson.M{
		"_id":       primitive.NewObjectID().Hex(),
		"username":  username,
		"createdAt": now,
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": setOnInsert,
	}
	_, err = cols.Users.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
