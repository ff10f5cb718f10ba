package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification kinds
const (
	NotificationComment = "comment"
	NotificationLike    = "like"
)

// Notification represents a user notification stored in MongoDB. It is
// created only by the notification engine in response to a qualifying
// comment, reply or like, and mutated only by read-state transitions.
type Notification struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"user" bson:"user"`         // who receives it
	FromUser  primitive.ObjectID `json:"fromUser" bson:"fromUser"` // who triggered it
	Type      string             `json:"type" bson:"type"`
	PostID    primitive.ObjectID `json:"post" bson:"post"`
	CommentID primitive.ObjectID `json:"comment,omitempty" bson:"comment,omitempty"` // zero for likes
	Message   string             `json:"message" bson:"message"`
	Read      bool               `json:"read" bson:"read"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

// EnrichedNotification carries the display-ready fields pushed to clients
// and returned from listings: actor name/avatar and the post title.
type EnrichedNotification struct {
	Notification
	Actor     UserCompact `json:"actor"`
	PostTitle string      `json:"post_title,omitempty"`
}
