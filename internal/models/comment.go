package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comment represents a comment on a post. A nil ParentComment means a
// top-level comment; otherwise the comment is a reply and MentionedUser
// holds the parent comment's author, captured when the reply is created.
type Comment struct {
	ID            primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	PostID        primitive.ObjectID  `json:"post" bson:"post"`
	UserID        primitive.ObjectID  `json:"user" bson:"user"`
	Content       string              `json:"content" bson:"content"`
	Files         []string            `json:"files" bson:"files"`
	ParentComment *primitive.ObjectID `json:"parentComment,omitempty" bson:"parentComment,omitempty"`
	MentionedUser *primitive.ObjectID `json:"mentionedUser,omitempty" bson:"mentionedUser,omitempty"`
	CreatedAt     time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at" bson:"updated_at"`
}

// IsReply reports whether the comment is a reply to another comment
func (c *Comment) IsReply() bool {
	return c.ParentComment != nil
}

// CreateCommentRequest defines the request body for creating a comment or reply
type CreateCommentRequest struct {
	PostID        string   `json:"postId" validate:"required"`
	Content       string   `json:"content" validate:"required,min=1,max=2000"`
	Files         []string `json:"files,omitempty" validate:"omitempty,dive,url"`
	ParentComment string   `json:"parentComment,omitempty"`
}

// EnrichedComment includes the author details for comment listings
type EnrichedComment struct {
	Comment
	Author UserCompact `json:"author"`
}
