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
	"mentorlink/internal/signaling"
	"mentorlink/pkg/logger"
)

// CallLogService persists call log records in the call_logs collection.
// It backs the coordinators' CallLogStore dependency.
type CallLogService struct {
	db         *mongo.Database
	collection *mongo.Collection
}

func NewCallLogService(db *mongo.Database) *CallLogService {
	return &CallLogService{
		db:         db,
		collection: db.Collection("call_logs"),
	}
}

func (s *CallLogService) Create(ctx context.Context, record *models.CallLog) (*models.CallLog, error) {
	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now
	if record.StartTime.IsZero() {
		record.StartTime = now
	}
	if record.Status == "" {
		record.Status = models.CallStatusOngoing
	}

	result, err := s.collection.InsertOne(ctx, record)
	if err != nil {
		logger.LogError(err, "Failed to create call log", map[string]interface{}{
			"call_id":  record.CallID,
			"chat_key": record.ChatKey,
		})
		return nil, fmt.Errorf("failed to create call log: %w", err)
	}

	record.ID = result.InsertedID.(primitive.ObjectID)
	return record, nil
}

func (s *CallLogService) FindByCallID(ctx context.Context, callID string) (*models.CallLog, error) {
	var record models.CallLog
	err := s.collection.FindOne(ctx, bson.M{"call_id": callID}).Decode(&record)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get call log: %w", err)
	}
	return &record, nil
}

func (s *CallLogService) Update(ctx context.Context, callID string, patch signaling.CallLogPatch) (*models.CallLog, error) {
	set := bson.M{"updated_at": time.Now()}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.EndTime != nil {
		set["end_time"] = *patch.EndTime
	}
	if patch.DurationSeconds != nil {
		set["duration_seconds"] = *patch.DurationSeconds
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.CallLog
	err := s.collection.FindOneAndUpdate(ctx, bson.M{"call_id": callID}, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("call log not found: %s", callID)
		}
		logger.LogError(err, "Failed to update call log", map[string]interface{}{
			"call_id": callID,
		})
		return nil, fmt.Errorf("failed to update call log: %w", err)
	}

	return &updated, nil
}

// ListForUser returns the user's call history, newest first.
func (s *CallLogService) ListForUser(ctx context.Context, userID string, page, limit int64) ([]models.CallLog, int64, error) {
	filter := bson.M{
		"$or": []bson.M{
			{"sender_id": userID},
			{"recipient_ids": userID},
		},
	}

	total, err := s.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count call logs: %w", err)
	}

	opts := options.Find().
		SetLimit(limit).
		SetSkip((page - 1) * limit).
		SetSort(bson.D{{Key: "start_time", Value: -1}})

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get call logs: %w", err)
	}
	defer cursor.Close(ctx)

	var records []models.CallLog
	if err = cursor.All(ctx, &records); err != nil {
		return nil, 0, fmt.Errorf("failed to decode call logs: %w", err)
	}

	return records, total, nil
}

// ListForChat returns the call history of one conversation, newest first.
func (s *CallLogService) ListForChat(ctx context.Context, chatKey string, limit int64) ([]models.CallLog, error) {
	opts := options.Find().
		SetLimit(limit).
		SetSort(bson.D{{Key: "start_time", Value: -1}})

	cursor, err := s.collection.Find(ctx, bson.M{"chat_key": chatKey}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get call logs: %w", err)
	}
	defer cursor.Close(ctx)

	var records []models.CallLog
	if err = cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode call logs: %w", err)
	}

	return records, nil
}
