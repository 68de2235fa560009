package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"mentorlink/internal/models"
)

// DirectoryService answers who may talk to whom: accepted relationships
// between user pairs and group membership. It backs the coordinators'
// Directory dependency.
type DirectoryService struct {
	db            *mongo.Database
	relationships *mongo.Collection
	groups        *mongo.Collection
}

func NewDirectoryService(db *mongo.Database) *DirectoryService {
	return &DirectoryService{
		db:            db,
		relationships: db.Collection("relationships"),
		groups:        db.Collection("groups"),
	}
}

// ResolveRelationship returns the accepted relationship containing both
// users, or nil when none exists.
func (s *DirectoryService) ResolveRelationship(ctx context.Context, userA, userB string) (*models.Relationship, error) {
	filter := bson.M{
		"participant_ids": bson.M{"$all": []string{userA, userB}},
		"status":          "accepted",
	}

	var rel models.Relationship
	err := s.relationships.FindOne(ctx, filter).Decode(&rel)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve relationship: %w", err)
	}

	return &rel, nil
}

// GroupMembers returns the member IDs of a group.
func (s *DirectoryService) GroupMembers(ctx context.Context, groupID string) ([]string, error) {
	group, err := s.findGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, fmt.Errorf("group not found: %s", groupID)
	}
	return group.MemberIDs, nil
}

// ConversationMembers returns every participant of a conversation. For group
// conversations the ID is a group ID; for direct conversations it is a
// relationship ID.
func (s *DirectoryService) ConversationMembers(ctx context.Context, convType models.ConversationType, conversationID string) ([]string, error) {
	if convType == models.ConversationGroup {
		return s.GroupMembers(ctx, conversationID)
	}

	objectID, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return nil, fmt.Errorf("invalid relationship id: %w", err)
	}

	var rel models.Relationship
	err = s.relationships.FindOne(ctx, bson.M{"_id": objectID, "status": "accepted"}).Decode(&rel)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("relationship not found: %s", conversationID)
		}
		return nil, fmt.Errorf("failed to get relationship: %w", err)
	}

	return rel.ParticipantIDs, nil
}

func (s *DirectoryService) findGroup(ctx context.Context, groupID string) (*models.Group, error) {
	objectID, err := primitive.ObjectIDFromHex(groupID)
	if err != nil {
		return nil, fmt.Errorf("invalid group id: %w", err)
	}

	var group models.Group
	err = s.groups.FindOne(ctx, bson.M{"_id": objectID}).Decode(&group)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	return &group, nil
}
