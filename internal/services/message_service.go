package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mentorlink/internal/models"
	"mentorlink/pkg/logger"
)

// MessageService persists chat messages in the messages collection. It
// backs the message router's MessageStore dependency.
type MessageService struct {
	db         *mongo.Database
	collection *mongo.Collection
}

func NewMessageService(db *mongo.Database) *MessageService {
	return &MessageService{
		db:         db,
		collection: db.Collection("messages"),
	}
}

func (s *MessageService) Insert(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	result, err := s.collection.InsertOne(ctx, msg)
	if err != nil {
		logger.LogError(err, "Failed to store message", map[string]interface{}{
			"chat_key":  msg.ChatKey,
			"sender_id": msg.SenderID,
		})
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	msg.ID = result.InsertedID.(primitive.ObjectID)
	return msg, nil
}

// List returns the most recent messages of a chat in chronological order.
func (s *MessageService) List(ctx context.Context, chatKey string, limit int64) ([]models.ChatMessage, error) {
	opts := options.Find().
		SetLimit(limit).
		SetSort(bson.D{{Key: "timestamp", Value: -1}})

	cursor, err := s.collection.Find(ctx, bson.M{"chat_key": chatKey}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []models.ChatMessage
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}

	// Query sorts newest first for the limit; callers want oldest first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// MarkRead flips every unread message in the chat that the reader did not
// send, and returns the flipped message IDs. The two-step fetch keeps the
// IDs available for the read receipt broadcast.
func (s *MessageService) MarkRead(ctx context.Context, chatKey, readerID string) ([]string, error) {
	filter := bson.M{
		"chat_key":  chatKey,
		"sender_id": bson.M{"$ne": readerID},
		"is_read":   false,
	}

	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find unread messages: %w", err)
	}

	var ids []string
	var objectIDs []primitive.ObjectID
	for cursor.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err == nil {
			ids = append(ids, doc.ID.Hex())
			objectIDs = append(objectIDs, doc.ID)
		}
	}
	cursor.Close(ctx)

	if len(objectIDs) == 0 {
		return nil, nil
	}

	update := bson.M{"$set": bson.M{
		"is_read": true,
		"status":  models.MessageStatusRead,
	}}
	_, err = s.collection.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": objectIDs}}, update)
	if err != nil {
		logger.LogError(err, "Failed to mark messages read", map[string]interface{}{
			"chat_key":  chatKey,
			"reader_id": readerID,
		})
		return nil, fmt.Errorf("failed to mark messages read: %w", err)
	}

	return ids, nil
}

// UnreadCount returns how many messages in the chat the user has not read.
func (s *MessageService) UnreadCount(ctx context.Context, chatKey, userID string) (int64, error) {
	count, err := s.collection.CountDocuments(ctx, bson.M{
		"chat_key":  chatKey,
		"sender_id": bson.M{"$ne": userID},
		"is_read":   false,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}
