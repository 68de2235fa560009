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
	"mentorlink/internal/ws"
	"mentorlink/pkg/logger"
)

// Pusher pushes events to a user's personal channel. *ws.Hub satisfies it.
type Pusher interface {
	EmitToUser(userID string, event ws.Event, payload interface{})
}

// NotificationService stores notifications and pushes them to the
// recipient's personal channel when they are online.
type NotificationService struct {
	db         *mongo.Database
	collection *mongo.Collection
	pusher     Pusher
}

func NewNotificationService(db *mongo.Database, pusher Pusher) *NotificationService {
	return &NotificationService{
		db:         db,
		collection: db.Collection("notifications"),
		pusher:     pusher,
	}
}

// Send stores a notification and pushes notification-new to the recipient.
func (s *NotificationService) Send(ctx context.Context, in models.NotificationInput) (*models.Notification, error) {
	now := time.Now()
	notification := &models.Notification{
		RecipientID: in.RecipientID,
		SenderID:    in.SenderID,
		Kind:        in.Kind,
		Text:        in.Text,
		RelatedID:   in.RelatedID,
		ContextType: in.ContextType,
		CallID:      in.CallID,
		CallType:    in.CallType,
		IsRead:      in.Read,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	result, err := s.collection.InsertOne(ctx, notification)
	if err != nil {
		logger.LogError(err, "Failed to create notification", map[string]interface{}{
			"recipient_id": in.RecipientID,
			"kind":         in.Kind,
		})
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	notification.ID = result.InsertedID.(primitive.ObjectID)

	s.pusher.EmitToUser(in.RecipientID, ws.EventNotificationNew, notification)
	return notification, nil
}

// MarkMissed flips the recipient's incoming-call notification for callID
// into a missed call and pushes the update. Returns nil when the recipient
// never got an incoming-call notification for this call.
func (s *NotificationService) MarkMissed(ctx context.Context, recipientID, callID, text string) (*models.Notification, error) {
	filter := bson.M{
		"recipient_id": recipientID,
		"call_id":      callID,
		"kind":         models.NotificationIncomingCall,
	}
	update := bson.M{"$set": bson.M{
		"kind":       models.NotificationMissedCall,
		"text":       text,
		"is_read":    false,
		"updated_at": time.Now(),
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Notification
	err := s.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		logger.LogError(err, "Failed to mark notification missed", map[string]interface{}{
			"recipient_id": recipientID,
			"call_id":      callID,
		})
		return nil, fmt.Errorf("failed to mark notification missed: %w", err)
	}

	s.pusher.EmitToUser(recipientID, ws.EventNotificationUpdated, &updated)
	return &updated, nil
}

// ListForUser returns the user's notifications, newest first.
func (s *NotificationService) ListForUser(ctx context.Context, userID string, limit int64) ([]models.Notification, error) {
	opts := options.Find().
		SetLimit(limit).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := s.collection.Find(ctx, bson.M{"recipient_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}

	return notifications, nil
}

// MarkRead flips one notification to read for its recipient.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	objectID, err := primitive.ObjectIDFromHex(notificationID)
	if err != nil {
		return fmt.Errorf("invalid notification id: %w", err)
	}

	result, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": objectID, "recipient_id": userID},
		bson.M{"$set": bson.M{"is_read": true, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("notification not found: %s", notificationID)
	}

	return nil
}

// UnreadCount returns the number of unread notifications for a user.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	count, err := s.collection.CountDocuments(ctx, bson.M{
		"recipient_id": userID,
		"is_read":      false,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}
