package database

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"mentorlink/internal/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	client   *mongo.Client
	database *mongo.Database
	once     sync.Once
)

// InitMongoDB initializes the MongoDB connection
func InitMongoDB(cfg config.MongoConfig) error {
	var err error

	once.Do(func() {
		err = connect(cfg)
	})

	return err
}

func connect(cfg config.MongoConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxConnIdleTime(cfg.MaxConnIdleTime).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ServerSelectionTimeout).
		SetRetryWrites(true).
		SetRetryReads(true)

	var err error
	client, err = mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	database = client.Database(cfg.Database)

	log.Printf("Connected to MongoDB database: %s", cfg.Database)

	go func() {
		if err := createIndexes(); err != nil {
			log.Printf("Warning: Failed to create indexes: %v", err)
		}
	}()

	return nil
}

// GetDatabase returns the database instance
func GetDatabase() *mongo.Database {
	if database == nil {
		log.Fatal("Database not initialized. Call InitMongoDB first.")
	}
	return database
}

// GetClient returns the MongoDB client
func GetClient() *mongo.Client {
	if client == nil {
		log.Fatal("MongoDB client not initialized. Call InitMongoDB first.")
	}
	return client
}

// Disconnect closes the MongoDB connection
func Disconnect() error {
	if client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return client.Disconnect(ctx)
}

func createIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	indexes := map[string][]mongo.IndexModel{
		"call_logs": {
			{
				Keys:    bson.D{{Key: "call_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{{Key: "chat_key", Value: 1}, {Key: "start_time", Value: -1}},
			},
			{
				Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "start_time", Value: -1}},
			},
			{
				Keys: bson.D{{Key: "recipient_ids", Value: 1}, {Key: "start_time", Value: -1}},
			},
		},
		"messages": {
			{
				Keys: bson.D{{Key: "chat_key", Value: 1}, {Key: "timestamp", Value: -1}},
			},
			{
				Keys: bson.D{{Key: "chat_key", Value: 1}, {Key: "is_read", Value: 1}},
			},
		},
		"notifications": {
			{
				Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "created_at", Value: -1}},
			},
			{
				Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "call_id", Value: 1}},
			},
		},
		"relationships": {
			{
				Keys: bson.D{{Key: "participant_ids", Value: 1}},
			},
		},
		"groups": {
			{
				Keys: bson.D{{Key: "member_ids", Value: 1}},
			},
		},
	}

	for collection, models := range indexes {
		if _, err := database.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes for %s: %w", collection, err)
		}
	}

	return nil
}
