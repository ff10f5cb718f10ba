package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/anonto42/medfeed/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	UpdateProfileImage(ctx context.Context, id string, profileURL string) (*models.User, error)
	SetResetToken(ctx context.Context, id string, tokenHash string, expire time.Time) error
	ClearResetToken(ctx context.Context, id string) error
	GetUserByResetToken(ctx context.Context, email, tokenHash string) (*models.User, error)
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	AddSavedPost(ctx context.Context, id string, postID primitive.ObjectID) error
	RemoveSavedPost(ctx context.Context, id string, postID primitive.ObjectID) error
}

// MongoUserRepository implements UserRepository for MongoDB
type MongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new MongoUserRepository
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{collection: db.Collection("users")}
}

// CreateUser creates a new user in MongoDB
func (r *MongoUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.SavedPosts == nil {
		user.SavedPosts = []primitive.ObjectID{}
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, user)
	return err
}

// GetUserByID retrieves a user by ID from MongoDB
func (r *MongoUserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format: %w", err)
	}

	var user models.User
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email from MongoDB
func (r *MongoUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByLogin retrieves a user matching either their email or member user_id
func (r *MongoUserRepository) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"email": login},
		bson.M{"user_id": login},
	}}

	var user models.User
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateProfileImage sets the user's profile image URL and returns the updated user
func (r *MongoUserRepository) UpdateProfileImage(ctx context.Context, id string, profileURL string) (*models.User, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format: %w", err)
	}

	update := bson.M{"$set": bson.M{"profile_url": profileURL, "updated_at": time.Now()}}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return r.GetUserByID(ctx, id)
}

// SetResetToken stores the hashed password-reset OTP with its expiry
func (r *MongoUserRepository) SetResetToken(ctx context.Context, id string, tokenHash string, expire time.Time) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid user ID format: %w", err)
	}
	update := bson.M{"$set": bson.M{"resetPasswordToken": tokenHash, "resetPasswordExpire": expire}}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	return err
}

// ClearResetToken removes any pending password-reset OTP
func (r *MongoUserRepository) ClearResetToken(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid user ID format: %w", err)
	}
	update := bson.M{"$unset": bson.M{"resetPasswordToken": "", "resetPasswordExpire": ""}}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	return err
}

// GetUserByResetToken retrieves a user by email and unexpired reset token hash
func (r *MongoUserRepository) GetUserByResetToken(ctx context.Context, email, tokenHash string) (*models.User, error) {
	filter := bson.M{
		"email":               email,
		"resetPasswordToken":  tokenHash,
		"resetPasswordExpire": bson.M{"$gt": time.Now()},
	}

	var user models.User
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdatePassword replaces the stored password hash
func (r *MongoUserRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid user ID format: %w", err)
	}
	update := bson.M{"$set": bson.M{"password": passwordHash, "updated_at": time.Now()}}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	return err
}

// AddSavedPost adds a post reference to the user's saved set
func (r *MongoUserRepository) AddSavedPost(ctx context.Context, id string, postID primitive.ObjectID) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid user ID format: %w", err)
	}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$addToSet": bson.M{"savedPosts": postID}})
	return err
}

// RemoveSavedPost removes a post reference from the user's saved set
func (r *MongoUserRepository) RemoveSavedPost(ctx context.Context, id string, postID primitive.ObjectID) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid user ID format: %w", err)
	}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$pull": bson.M{"savedPosts": postID}})
	return err
}
