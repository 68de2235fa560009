package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RelationshipType string

const (
	RelationshipMentor RelationshipType = "mentor"
	RelationshipPeer   RelationshipType = "peer"
)

// Relationship links two users as an accepted mentor collaboration or peer connection.
type Relationship struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ParticipantIDs []string           `bson:"participant_ids" json:"participant_ids"`
	Type           RelationshipType   `bson:"type" json:"type"`
	Status         string             `bson:"status" json:"status"` // pending, accepted, ended
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}

// ConversationType maps the relationship type to its conversation scope.
func (r *Relationship) ConversationType() ConversationType {
	if r.Type == RelationshipMentor {
		return ConversationDirectMentor
	}
	return ConversationDirectPeer
}

// Group is a study/mentorship group with a fixed member list.
type Group struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	OwnerID   string             `bson:"owner_id" json:"owner_id"`
	MemberIDs []string           `bson:"member_ids" json:"member_ids"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// HasMember reports whether userID belongs to the group.
func (g *Group) HasMember(userID string) bool {
	for _, id := range g.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}
