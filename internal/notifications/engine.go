// Package notifications decides, on each qualifying comment, reply or like,
// who gets notified, persists the notification, keeps the unread count
// honest against deleted posts/comments, and hands live delivery to the
// realtime hub. It is best-effort relative to the write that triggered it:
// nothing here ever fails the primary write.
package notifications

import (
	"context"
	"fmt"

	"github.com/anonto42/medfeed/backend/internal/models"
	"github.com/anonto42/medfeed/backend/internal/repositories"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Dispatcher pushes events to a user's live sessions. Satisfied by
// *realtime.Hub.
type Dispatcher interface {
	PushNotification(userID string, notification models.EnrichedNotification, unreadCount int64)
	PushReadState(userID string, unreadCount int64)
}

// Engine is the notification engine
type Engine struct {
	notifications repositories.NotificationRepository
	posts         repositories.PostRepository
	comments      repositories.CommentRepository
	users         repositories.UserRepository
	dispatcher    Dispatcher
	logger        zerolog.Logger
}

// NewEngine creates a notification engine
func NewEngine(
	notifRepo repositories.NotificationRepository,
	postRepo repositories.PostRepository,
	commentRepo repositories.CommentRepository,
	userRepo repositories.UserRepository,
	dispatcher Dispatcher,
	logger zerolog.Logger,
) *Engine {
	return &Engine{
		notifications: notifRepo,
		posts:         postRepo,
		comments:      commentRepo,
		users:         userRepo,
		dispatcher:    dispatcher,
		logger:        logger.With().Str("component", "notifications").Logger(),
	}
}

// CommentCreated handles the post-commit hook for a new comment or reply.
// Top-level comments notify the post owner; replies notify the parent
// comment's author. Self-directed actions produce nothing. Failures are
// logged and absorbed: the comment is already persisted and must stand.
func (e *Engine) CommentCreated(ctx context.Context, actor *models.User, post *models.Post, comment *models.Comment, parent *models.Comment) {
	var recipient primitive.ObjectID
	var message string

	if parent != nil {
		recipient = parent.UserID
		message = fmt.Sprintf("%s replied to your comment", actor.FullName)
	} else {
		recipient = post.UserID
		message = fmt.Sprintf("%s commented on your post", actor.FullName)
	}

	if recipient == actor.ID {
		return
	}

	notification := &models.Notification{
		UserID:    recipient,
		FromUser:  actor.ID,
		Type:      models.NotificationComment,
		PostID:    post.ID,
		CommentID: comment.ID,
		Message:   message,
	}
	e.persistAndPush(ctx, actor, post, notification)
}

// PostLiked handles the post-commit hook for a not-liked-to-liked
// transition. Unlikes and self-likes never reach here.
func (e *Engine) PostLiked(ctx context.Context, actor *models.User, post *models.Post) {
	if post.UserID == actor.ID {
		return
	}

	notification := &models.Notification{
		UserID:   post.UserID,
		FromUser: actor.ID,
		Type:     models.NotificationLike,
		PostID:   post.ID,
		Message:  fmt.Sprintf("%s liked your post.", actor.FullName),
	}
	e.persistAndPush(ctx, actor, post, notification)
}

// persistAndPush stores the notification, recomputes the recipient's
// unread count and pushes both to any live sessions. Every step is
// best-effort.
func (e *Engine) persistAndPush(ctx context.Context, actor *models.User, post *models.Post, notification *models.Notification) {
	if err := e.notifications.CreateNotification(ctx, notification); err != nil {
		e.logger.Error().Err(err).
			Str("recipient", notification.UserID.Hex()).
			Str("type", notification.Type).
			Msg("persist notification failed")
		return
	}

	count, err := e.UnreadCount(ctx, notification.UserID)
	if err != nil {
		e.logger.Warn().Err(err).Str("recipient", notification.UserID.Hex()).Msg("unread count failed")
	}

	enriched := models.EnrichedNotification{
		Notification: *notification,
		Actor:        actor.ToCompact(),
		PostTitle:    post.Title,
	}
	e.dispatcher.PushNotification(notification.UserID.Hex(), enriched, count)
}

// isValid applies the orphan rule: the referenced post must still exist,
// and for non-like kinds so must the referenced comment.
func (e *Engine) isValid(ctx context.Context, n *models.Notification) (bool, error) {
	ok, err := e.posts.PostExists(ctx, n.PostID)
	if err != nil || !ok {
		return false, err
	}
	if n.Type == models.NotificationLike {
		return true, nil
	}
	if n.CommentID.IsZero() {
		return false, nil
	}
	return e.comments.CommentExists(ctx, n.CommentID)
}

// UnreadCount returns the number of unread, non-orphaned notifications for
// the user. A single equality filter is not enough once posts or comments
// have been deleted, so unread candidates are fetched and validated
// individually.
func (e *Engine) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	unread, err := e.notifications.GetUnreadByRecipientID(ctx, userID)
	if err != nil {
		return 0, err
	}

	var count int64
	for i := range unread {
		ok, err := e.isValid(ctx, &unread[i])
		if err != nil {
			return 0, err
		}
		if ok {
			count++
		}
	}
	return count, nil
}

// ListValid returns the user's notifications newest first, excluding
// orphans, with actor name/avatar and post title filled in for display.
func (e *Engine) ListValid(ctx context.Context, userID primitive.ObjectID) ([]models.EnrichedNotification, error) {
	notifications, err := e.notifications.GetByRecipientID(ctx, userID)
	if err != nil {
		return nil, err
	}

	enriched := make([]models.EnrichedNotification, 0, len(notifications))
	actorCache := make(map[primitive.ObjectID]models.UserCompact)

	for i := range notifications {
		n := &notifications[i]
		ok, err := e.isValid(ctx, n)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		item := models.EnrichedNotification{Notification: *n}
		if actor, cached := actorCache[n.FromUser]; cached {
			item.Actor = actor
		} else if user, err := e.users.GetUserByID(ctx, n.FromUser.Hex()); err == nil {
			compact := user.ToCompact()
			actorCache[n.FromUser] = compact
			item.Actor = compact
		}
		if post, err := e.posts.GetPostByID(ctx, n.PostID.Hex()); err == nil {
			item.PostTitle = post.Title
		}
		enriched = append(enriched, item)
	}
	return enriched, nil
}

// MarkRead marks one notification as read for its recipient, recomputes
// the unread count, pushes the read-state change and returns the count.
// Returns repositories.ErrNotFound when the notification does not exist or
// belongs to someone else. Idempotent: marking an already-read
// notification again matches it and changes nothing.
func (e *Engine) MarkRead(ctx context.Context, notificationID string, userID primitive.ObjectID) (int64, error) {
	matched, err := e.notifications.MarkAsRead(ctx, notificationID, userID)
	if err != nil {
		return 0, err
	}
	if matched == 0 {
		return 0, repositories.ErrNotFound
	}

	count, err := e.UnreadCount(ctx, userID)
	if err != nil {
		return 0, err
	}

	e.dispatcher.PushReadState(userID.Hex(), count)
	return count, nil
}

// MarkAllRead marks every unread notification of the user as read and
// pushes a zero count. Idempotent.
func (e *Engine) MarkAllRead(ctx context.Context, userID primitive.ObjectID) error {
	if err := e.notifications.MarkAllAsRead(ctx, userID); err != nil {
		return err
	}
	e.dispatcher.PushReadState(userID.Hex(), 0)
	return nil
}
