// Command migrate prepares the MongoDB database: it creates the
// collections and indexes the server expects, and in development seeds a
// few relationships and a group so the signaling paths can be exercised
// end to end.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mentorlink/internal/models"
)

type migrateConfig struct {
	MongoURI     string
	DatabaseName string
	Environment  string
	Seed         bool
}

type collectionSetup struct {
	Name    string
	Indexes []mongo.IndexModel
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := migrateConfig{
		MongoURI:     getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		DatabaseName: getEnv("MONGODB_DATABASE", "mentorlink"),
		Environment:  getEnv("APP_ENV", "development"),
	}
	cfg.Seed = cfg.Environment != "production" && getEnv("MIGRATE_SEED", "true") == "true"

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	if err := client.Ping(ctx, nil); err != nil {
		log.Fatalf("failed to ping MongoDB: %v", err)
	}

	db := client.Database(cfg.DatabaseName)

	for _, setup := range collectionSetups() {
		if err := ensureCollection(ctx, db, setup); err != nil {
			log.Fatalf("failed to set up %s: %v", setup.Name, err)
		}
		fmt.Printf("collection %s ready (%d indexes)\n", setup.Name, len(setup.Indexes))
	}

	if cfg.Seed {
		if err := seedData(ctx, db); err != nil {
			log.Fatalf("failed to seed data: %v", err)
		}
		fmt.Println("seed data inserted")
	}

	fmt.Println("migration complete")
}

func collectionSetups() []collectionSetup {
	return []collectionSetup{
		{
			Name: "call_logs",
			Indexes: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "call_id", Value: 1}},
					Options: options.Index().SetUnique(true),
				},
				{Keys: bson.D{{Key: "chat_key", Value: 1}, {Key: "start_time", Value: -1}}},
				{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "start_time", Value: -1}}},
				{Keys: bson.D{{Key: "recipient_ids", Value: 1}, {Key: "start_time", Value: -1}}},
			},
		},
		{
			Name: "messages",
			Indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "chat_key", Value: 1}, {Key: "timestamp", Value: -1}}},
				{Keys: bson.D{{Key: "chat_key", Value: 1}, {Key: "is_read", Value: 1}}},
			},
		},
		{
			Name: "notifications",
			Indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "created_at", Value: -1}}},
				{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "call_id", Value: 1}, {Key: "kind", Value: 1}}},
			},
		},
		{
			Name: "relationships",
			Indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "participant_ids", Value: 1}, {Key: "status", Value: 1}}},
			},
		},
		{
			Name: "groups",
			Indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "member_ids", Value: 1}}},
			},
		},
	}
}

func ensureCollection(ctx context.Context, db *mongo.Database, setup collectionSetup) error {
	// CreateCollection fails if the collection exists; that is fine.
	_ = db.CreateCollection(ctx, setup.Name)

	if len(setup.Indexes) == 0 {
		return nil
	}
	_, err := db.Collection(setup.Name).Indexes().CreateMany(ctx, setup.Indexes)
	return err
}

func seedData(ctx context.Context, db *mongo.Database) error {
	relationships := db.Collection("relationships")

	count, err := relationships.CountDocuments(ctx, bson.M{})
	if err != nil {
		return err
	}
	if count > 0 {
		fmt.Println("seed skipped: relationships already present")
		return nil
	}

	now := time.Now()
	rels := []interface{}{
		models.Relationship{
			ParticipantIDs: []string{"mentor_1", "mentee_1"},
			Type:           models.RelationshipMentor,
			Status:         "accepted",
			CreatedAt:      now,
		},
		models.Relationship{
			ParticipantIDs: []string{"mentee_1", "mentee_2"},
			Type:           models.RelationshipPeer,
			Status:         "accepted",
			CreatedAt:      now,
		},
	}
	if _, err := relationships.InsertMany(ctx, rels); err != nil {
		return err
	}

	group := models.Group{
		Name:      "Backend Study Group",
		OwnerID:   "mentor_1",
		MemberIDs: []string{"mentor_1", "mentee_1", "mentee_2"},
		CreatedAt: now,
	}
	_, err = db.Collection("groups").InsertOne(ctx, group)
	return err
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
