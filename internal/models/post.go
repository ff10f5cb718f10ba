package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxPostImages caps how many images a single post may carry
const MaxPostImages = 10

// Post represents a feed post stored in MongoDB
type Post struct {
	ID        primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    primitive.ObjectID   `json:"user" bson:"user"`
	Title     string               `json:"title" bson:"title"`
	Content   string               `json:"content" bson:"content"`
	Category  string               `json:"category" bson:"category"`
	Images    []string             `json:"images" bson:"images"`
	Likes     []primitive.ObjectID `json:"likes" bson:"likes"`
	CreatedAt time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time            `json:"updated_at" bson:"updated_at"`
}

// LikedBy reports whether userID is in the post's like set
func (p *Post) LikedBy(userID primitive.ObjectID) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Title    string   `json:"title" validate:"required,min=1,max=150"`
	Content  string   `json:"content" validate:"required,min=1"`
	Category string   `json:"category" validate:"required,oneof=General Education Coding Design News Technology Entertainment Other"`
	Images   []string `json:"images,omitempty" validate:"omitempty,dive,url"`
}

// UpdatePostRequest defines the request body for updating an existing post
type UpdatePostRequest struct {
	Title    string   `json:"title,omitempty" validate:"omitempty,min=1,max=150"`
	Content  string   `json:"content,omitempty" validate:"omitempty,min=1"`
	Category string   `json:"category,omitempty" validate:"omitempty,oneof=General Education Coding Design News Technology Entertainment Other"`
	Images   []string `json:"images,omitempty" validate:"omitempty,dive,url"`
}

// EnrichedPost includes the author details for feed responses
type EnrichedPost struct {
	Post
	Author     UserCompact `json:"author"`
	LikesCount int         `json:"likes_count"`
}
