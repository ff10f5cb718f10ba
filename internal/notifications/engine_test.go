package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/anonto42/medfeed/backend/internal/models"
	"github.com/anonto42/medfeed/backend/internal/repositories"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type pushRecord struct {
	userID       string
	notification models.EnrichedNotification
	count        int64
}

type readRecord struct {
	userID string
	count  int64
}

type fakeDispatcher struct {
	pushes     []pushRecord
	readStates []readRecord
}

func (d *fakeDispatcher) PushNotification(userID string, n models.EnrichedNotification, count int64) {
	d.pushes = append(d.pushes, pushRecord{userID: userID, notification: n, count: count})
}

func (d *fakeDispatcher) PushReadState(userID string, count int64) {
	d.readStates = append(d.readStates, readRecord{userID: userID, count: count})
}

type fakeNotificationRepo struct {
	notifications []models.Notification
	failCreate    bool
}

func (r *fakeNotificationRepo) CreateNotification(_ context.Context, n *models.Notification) error {
	if r.failCreate {
		return errors.New("store unavailable")
	}
	n.ID = primitive.NewObjectID()
	n.Read = false
	r.notifications = append(r.notifications, *n)
	return nil
}

func (r *fakeNotificationRepo) GetByRecipientID(_ context.Context, recipient primitive.ObjectID) ([]models.Notification, error) {
	var out []models.Notification
	for i := len(r.notifications) - 1; i >= 0; i-- {
		if r.notifications[i].UserID == recipient {
			out = append(out, r.notifications[i])
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) GetUnreadByRecipientID(_ context.Context, recipient primitive.ObjectID) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range r.notifications {
		if n.UserID == recipient && !n.Read {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkAsRead(_ context.Context, id string, recipient primitive.ObjectID) (int64, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, err
	}
	for i := range r.notifications {
		if r.notifications[i].ID == objID && r.notifications[i].UserID == recipient {
			r.notifications[i].Read = true
			return 1, nil
		}
	}
	return 0, nil
}

func (r *fakeNotificationRepo) MarkAllAsRead(_ context.Context, recipient primitive.ObjectID) error {
	for i := range r.notifications {
		if r.notifications[i].UserID == recipient {
			r.notifications[i].Read = true
		}
	}
	return nil
}

type fakePostRepo struct {
	repositories.PostRepository
	posts map[primitive.ObjectID]*models.Post
}

func (r *fakePostRepo) PostExists(_ context.Context, id primitive.ObjectID) (bool, error) {
	_, ok := r.posts[id]
	return ok, nil
}

func (r *fakePostRepo) GetPostByID(_ context.Context, id string) (*models.Post, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	if p, ok := r.posts[objID]; ok {
		return p, nil
	}
	return nil, repositories.ErrNotFound
}

type fakeCommentRepo struct {
	repositories.CommentRepository
	comments map[primitive.ObjectID]*models.Comment
}

func (r *fakeCommentRepo) CommentExists(_ context.Context, id primitive.ObjectID) (bool, error) {
	_, ok := r.comments[id]
	return ok, nil
}

type fakeUserRepo struct {
	repositories.UserRepository
	users map[primitive.ObjectID]*models.User
}

func (r *fakeUserRepo) GetUserByID(_ context.Context, id string) (*models.User, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	if u, ok := r.users[objID]; ok {
		return u, nil
	}
	return nil, repositories.ErrNotFound
}

type fixture struct {
	engine        *Engine
	notifications *fakeNotificationRepo
	posts         *fakePostRepo
	comments      *fakeCommentRepo
	users         *fakeUserRepo
	dispatcher    *fakeDispatcher

	owner *models.User
	actor *models.User
	post  *models.Post
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	owner := &models.User{ID: primitive.NewObjectID(), FullName: "Alice"}
	actor := &models.User{ID: primitive.NewObjectID(), FullName: "Bob"}
	post := &models.Post{ID: primitive.NewObjectID(), UserID: owner.ID, Title: "First post"}

	f := &fixture{
		notifications: &fakeNotificationRepo{},
		posts:         &fakePostRepo{posts: map[primitive.ObjectID]*models.Post{post.ID: post}},
		comments:      &fakeCommentRepo{comments: map[primitive.ObjectID]*models.Comment{}},
		users: &fakeUserRepo{users: map[primitive.ObjectID]*models.User{
			owner.ID: owner,
			actor.ID: actor,
		}},
		dispatcher: &fakeDispatcher{},
		owner:      owner,
		actor:      actor,
		post:       post,
	}
	f.engine = NewEngine(f.notifications, f.posts, f.comments, f.users, f.dispatcher, zerolog.Nop())
	return f
}

func (f *fixture) addComment(author *models.User, parent *models.Comment) *models.Comment {
	c := &models.Comment{ID: primitive.NewObjectID(), PostID: f.post.ID, UserID: author.ID, Content: "nice"}
	if parent != nil {
		parentID := parent.ID
		c.ParentComment = &parentID
	}
	f.comments.comments[c.ID] = c
	return c
}

func TestTopLevelCommentNotifiesPostOwner(t *testing.T) {
	f := newFixture(t)
	comment := f.addComment(f.actor, nil)

	f.engine.CommentCreated(context.Background(), f.actor, f.post, comment, nil)

	require.Len(t, f.notifications.notifications, 1)
	n := f.notifications.notifications[0]
	assert.Equal(t, f.owner.ID, n.UserID)
	assert.Equal(t, f.actor.ID, n.FromUser)
	assert.Equal(t, models.NotificationComment, n.Type)
	assert.Equal(t, "Bob commented on your post", n.Message)
	assert.False(t, n.Read)

	require.Len(t, f.dispatcher.pushes, 1)
	push := f.dispatcher.pushes[0]
	assert.Equal(t, f.owner.ID.Hex(), push.userID)
	assert.Equal(t, int64(1), push.count)
	assert.Equal(t, "Bob", push.notification.Actor.FullName)
	assert.Equal(t, "First post", push.notification.PostTitle)
}

func TestReplyNotifiesParentAuthorNotPostOwner(t *testing.T) {
	f := newFixture(t)
	parent := f.addComment(f.actor, nil)
	// The post owner replies to Bob's comment: Bob gets notified, not Alice
	reply := f.addComment(f.owner, parent)

	f.engine.CommentCreated(context.Background(), f.owner, f.post, reply, parent)

	require.Len(t, f.notifications.notifications, 1)
	n := f.notifications.notifications[0]
	assert.Equal(t, f.actor.ID, n.UserID)
	assert.Equal(t, "Alice replied to your comment", n.Message)
}

func TestSelfActionsProduceNoNotification(t *testing.T) {
	f := newFixture(t)

	ownComment := f.addComment(f.owner, nil)
	f.engine.CommentCreated(context.Background(), f.owner, f.post, ownComment, nil)

	parent := f.addComment(f.actor, nil)
	ownReply := f.addComment(f.actor, parent)
	f.engine.CommentCreated(context.Background(), f.actor, f.post, ownReply, parent)

	f.engine.PostLiked(context.Background(), f.owner, f.post)

	assert.Empty(t, f.notifications.notifications)
	assert.Empty(t, f.dispatcher.pushes)
}

func TestLikeNotifiesPostOwner(t *testing.T) {
	f := newFixture(t)

	f.engine.PostLiked(context.Background(), f.actor, f.post)

	require.Len(t, f.notifications.notifications, 1)
	n := f.notifications.notifications[0]
	assert.Equal(t, models.NotificationLike, n.Type)
	assert.Equal(t, f.owner.ID, n.UserID)
	assert.Equal(t, "Bob liked your post.", n.Message)
	assert.True(t, n.CommentID.IsZero())

	require.Len(t, f.dispatcher.pushes, 1)
	assert.Equal(t, int64(1), f.dispatcher.pushes[0].count)
}

func TestUnreadCountExcludesOrphans(t *testing.T) {
	f := newFixture(t)

	comment := f.addComment(f.actor, nil)
	f.engine.CommentCreated(context.Background(), f.actor, f.post, comment, nil)
	f.engine.PostLiked(context.Background(), f.actor, f.post)

	count, err := f.engine.UnreadCount(context.Background(), f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// Comment deleted: the comment notification orphans, the like survives
	delete(f.comments.comments, comment.ID)
	count, err = f.engine.UnreadCount(context.Background(), f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// Post deleted: everything orphans
	delete(f.posts.posts, f.post.ID)
	count, err = f.engine.UnreadCount(context.Background(), f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestListValidFiltersOrphans(t *testing.T) {
	f := newFixture(t)

	comment := f.addComment(f.actor, nil)
	f.engine.CommentCreated(context.Background(), f.actor, f.post, comment, nil)
	f.engine.PostLiked(context.Background(), f.actor, f.post)

	list, err := f.engine.ListValid(context.Background(), f.owner.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	delete(f.comments.comments, comment.ID)
	list, err = f.engine.ListValid(context.Background(), f.owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.NotificationLike, list[0].Type)
	assert.Equal(t, "Bob", list[0].Actor.FullName)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	f := newFixture(t)
	comment := f.addComment(f.actor, nil)
	f.engine.CommentCreated(context.Background(), f.actor, f.post, comment, nil)
	f.engine.PostLiked(context.Background(), f.actor, f.post)

	id := f.notifications.notifications[0].ID.Hex()

	count, err := f.engine.MarkRead(context.Background(), id, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// Second call matches the already-read row and reports the same count
	count, err = f.engine.MarkRead(context.Background(), id, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.Len(t, f.dispatcher.readStates, 2)
	assert.Equal(t, int64(1), f.dispatcher.readStates[1].count)
}

func TestMarkReadRejectsForeignNotification(t *testing.T) {
	f := newFixture(t)
	comment := f.addComment(f.actor, nil)
	f.engine.CommentCreated(context.Background(), f.actor, f.post, comment, nil)

	id := f.notifications.notifications[0].ID.Hex()

	_, err := f.engine.MarkRead(context.Background(), id, f.actor.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.Empty(t, f.dispatcher.readStates)
}

func TestMarkAllReadDrivesCountToZero(t *testing.T) {
	f := newFixture(t)
	comment := f.addComment(f.actor, nil)
	f.engine.CommentCreated(context.Background(), f.actor, f.post, comment, nil)
	f.engine.PostLiked(context.Background(), f.actor, f.post)

	require.NoError(t, f.engine.MarkAllRead(context.Background(), f.owner.ID))

	for _, n := range f.notifications.notifications {
		assert.True(t, n.Read)
	}
	count, err := f.engine.UnreadCount(context.Background(), f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	require.Len(t, f.dispatcher.readStates, 1)
	assert.Equal(t, int64(0), f.dispatcher.readStates[0].count)
}

func TestPersistFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.notifications.failCreate = true
	comment := f.addComment(f.actor, nil)

	// Must not panic or push anything; the triggering write already succeeded
	f.engine.CommentCreated(context.Background(), f.actor, f.post, comment, nil)

	assert.Empty(t, f.notifications.notifications)
	assert.Empty(t, f.dispatcher.pushes)
}
