package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/anonto42/medfeed/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	GetByRecipientID(ctx context.Context, recipientID primitive.ObjectID) ([]models.Notification, error)
	GetUnreadByRecipientID(ctx context.Context, recipientID primitive.ObjectID) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, notificationID string, recipientID primitive.ObjectID) (int64, error)
	MarkAllAsRead(ctx context.Context, recipientID primitive.ObjectID) error
}

// MongoNotificationRepository implements NotificationRepository for MongoDB
type MongoNotificationRepository struct {
	collection *mongo.Collection
}

// NewMongoNotificationRepository creates a new MongoNotificationRepository
func NewMongoNotificationRepository(db *mongo.Database) *MongoNotificationRepository {
	return &MongoNotificationRepository{collection: db.Collection("notifications")}
}

// CreateNotification persists a new notification with read=false
func (r *MongoNotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	notification.ID = primitive.NewObjectID()
	notification.Read = false
	notification.CreatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, notification)
	return err
}

// GetByRecipientID retrieves all notifications for a recipient, newest first
func (r *MongoNotificationRepository) GetByRecipientID(ctx context.Context, recipientID primitive.ObjectID) ([]models.Notification, error) {
	var notifications []models.Notification
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"user": recipientID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// GetUnreadByRecipientID retrieves the recipient's unread notifications.
// Orphan filtering happens above this layer; this is the raw candidate set.
func (r *MongoNotificationRepository) GetUnreadByRecipientID(ctx context.Context, recipientID primitive.ObjectID) ([]models.Notification, error) {
	var notifications []models.Notification
	cursor, err := r.collection.Find(ctx, bson.M{"user": recipientID, "read": false})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkAsRead marks one notification as read, scoped to its recipient so a
// user cannot mark someone else's notification. Returns the matched count.
func (r *MongoNotificationRepository) MarkAsRead(ctx context.Context, notificationID string, recipientID primitive.ObjectID) (int64, error) {
	objID, err := primitive.ObjectIDFromHex(notificationID)
	if err != nil {
		return 0, fmt.Errorf("invalid notification ID format: %w", err)
	}

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objID, "user": recipientID},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

// MarkAllAsRead marks every unread notification of the recipient as read
func (r *MongoNotificationRepository) MarkAllAsRead(ctx context.Context, recipientID primitive.ObjectID) error {
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"user": recipientID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	return err
}
