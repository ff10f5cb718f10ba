package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anonto42/medfeed/backend/internal/models"
	"github.com/anonto42/medfeed/backend/internal/notifications"
	"github.com/anonto42/medfeed/backend/internal/repositories"
	"github.com/anonto42/medfeed/backend/validators"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testLogger() zerolog.Logger { return zerolog.Nop() }

// In-memory stand-ins for the Mongo repositories. Embedding the interface
// keeps each stub small; calling an unimplemented method panics the test.

type stubUserRepo struct {
	repositories.UserRepository
	users map[primitive.ObjectID]*models.User
}

func (r *stubUserRepo) GetUserByID(_ context.Context, id string) (*models.User, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	if u, ok := r.users[objID]; ok {
		return u, nil
	}
	return nil, repositories.ErrNotFound
}

func (r *stubUserRepo) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == login || u.UserID == login {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *stubUserRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *stubUserRepo) SetResetToken(_ context.Context, id string, tokenHash string, expire time.Time) error {
	objID, _ := primitive.ObjectIDFromHex(id)
	u := r.users[objID]
	u.ResetPasswordToken = tokenHash
	u.ResetPasswordExpire = expire
	return nil
}

func (r *stubUserRepo) ClearResetToken(_ context.Context, id string) error {
	objID, _ := primitive.ObjectIDFromHex(id)
	u := r.users[objID]
	u.ResetPasswordToken = ""
	u.ResetPasswordExpire = time.Time{}
	return nil
}

func (r *stubUserRepo) GetUserByResetToken(_ context.Context, email, tokenHash string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email && u.ResetPasswordToken == tokenHash && u.ResetPasswordExpire.After(time.Now()) {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *stubUserRepo) UpdatePassword(_ context.Context, id string, passwordHash string) error {
	objID, _ := primitive.ObjectIDFromHex(id)
	u := r.users[objID]
	u.Password = passwordHash
	return nil
}

func (r *stubUserRepo) AddSavedPost(_ context.Context, id string, postID primitive.ObjectID) error {
	objID, _ := primitive.ObjectIDFromHex(id)
	u := r.users[objID]
	u.SavedPosts = append(u.SavedPosts, postID)
	return nil
}

func (r *stubUserRepo) RemoveSavedPost(_ context.Context, id string, postID primitive.ObjectID) error {
	objID, _ := primitive.ObjectIDFromHex(id)
	u := r.users[objID]
	out := u.SavedPosts[:0]
	for _, pid := range u.SavedPosts {
		if pid != postID {
			out = append(out, pid)
		}
	}
	u.SavedPosts = out
	return nil
}

type stubPostRepo struct {
	repositories.PostRepository
	posts   map[primitive.ObjectID]*models.Post
	deleted []primitive.ObjectID
}

func (r *stubPostRepo) GetPostByID(_ context.Context, id string) (*models.Post, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	if p, ok := r.posts[objID]; ok {
		return p, nil
	}
	return nil, repositories.ErrNotFound
}

func (r *stubPostRepo) PostExists(_ context.Context, id primitive.ObjectID) (bool, error) {
	_, ok := r.posts[id]
	return ok, nil
}

func (r *stubPostRepo) CreatePost(_ context.Context, post *models.Post) error {
	post.ID = primitive.NewObjectID()
	r.posts[post.ID] = post
	return nil
}

func (r *stubPostRepo) DeletePost(_ context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	if _, ok := r.posts[objID]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.posts, objID)
	r.deleted = append(r.deleted, objID)
	return nil
}

func (r *stubPostRepo) AddLike(_ context.Context, postID string, userID primitive.ObjectID) error {
	objID, _ := primitive.ObjectIDFromHex(postID)
	p := r.posts[objID]
	p.Likes = append(p.Likes, userID)
	return nil
}

func (r *stubPostRepo) RemoveLike(_ context.Context, postID string, userID primitive.ObjectID) error {
	objID, _ := primitive.ObjectIDFromHex(postID)
	p := r.posts[objID]
	out := p.Likes[:0]
	for _, id := range p.Likes {
		if id != userID {
			out = append(out, id)
		}
	}
	p.Likes = out
	return nil
}

type stubCommentRepo struct {
	repositories.CommentRepository
	comments        map[primitive.ObjectID]*models.Comment
	created         []*models.Comment
	cascadedPosts   []primitive.ObjectID
	cascadedParents []primitive.ObjectID
}

func (r *stubCommentRepo) CreateComment(_ context.Context, comment *models.Comment) error {
	comment.ID = primitive.NewObjectID()
	r.comments[comment.ID] = comment
	r.created = append(r.created, comment)
	return nil
}

func (r *stubCommentRepo) GetCommentByID(_ context.Context, id string) (*models.Comment, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	if c, ok := r.comments[objID]; ok {
		return c, nil
	}
	return nil, repositories.ErrNotFound
}

func (r *stubCommentRepo) GetCommentsByPostID(_ context.Context, postID string) ([]models.Comment, error) {
	objID, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return nil, err
	}
	var out []models.Comment
	for _, c := range r.comments {
		if c.PostID == objID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *stubCommentRepo) CommentExists(_ context.Context, id primitive.ObjectID) (bool, error) {
	_, ok := r.comments[id]
	return ok, nil
}

func (r *stubCommentRepo) DeleteComment(_ context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	if _, ok := r.comments[objID]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.comments, objID)
	return nil
}

func (r *stubCommentRepo) DeleteByPostID(_ context.Context, postID primitive.ObjectID) (int64, error) {
	r.cascadedPosts = append(r.cascadedPosts, postID)
	var n int64
	for id, c := range r.comments {
		if c.PostID == postID {
			delete(r.comments, id)
			n++
		}
	}
	return n, nil
}

func (r *stubCommentRepo) DeleteDirectReplies(_ context.Context, parentID primitive.ObjectID) (int64, error) {
	r.cascadedParents = append(r.cascadedParents, parentID)
	var n int64
	for id, c := range r.comments {
		if c.ParentComment != nil && *c.ParentComment == parentID {
			delete(r.comments, id)
			n++
		}
	}
	return n, nil
}

type stubNotificationRepo struct {
	repositories.NotificationRepository
	notifications []models.Notification
}

func (r *stubNotificationRepo) CreateNotification(_ context.Context, n *models.Notification) error {
	n.ID = primitive.NewObjectID()
	r.notifications = append(r.notifications, *n)
	return nil
}

func (r *stubNotificationRepo) GetUnreadByRecipientID(_ context.Context, recipient primitive.ObjectID) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range r.notifications {
		if n.UserID == recipient && !n.Read {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *stubNotificationRepo) GetByRecipientID(_ context.Context, recipient primitive.ObjectID) ([]models.Notification, error) {
	var out []models.Notification
	for i := len(r.notifications) - 1; i >= 0; i-- {
		if r.notifications[i].UserID == recipient {
			out = append(out, r.notifications[i])
		}
	}
	return out, nil
}

func (r *stubNotificationRepo) MarkAsRead(_ context.Context, notificationID string, recipient primitive.ObjectID) (int64, error) {
	objID, err := primitive.ObjectIDFromHex(notificationID)
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

func (r *stubNotificationRepo) MarkAllAsRead(_ context.Context, recipient primitive.ObjectID) error {
	for i := range r.notifications {
		if r.notifications[i].UserID == recipient {
			r.notifications[i].Read = true
		}
	}
	return nil
}

type stubDispatcher struct {
	pushed     []models.EnrichedNotification
	readCounts []int64
	broadcasts []string
}

func (d *stubDispatcher) PushNotification(_ string, n models.EnrichedNotification, _ int64) {
	d.pushed = append(d.pushed, n)
}

func (d *stubDispatcher) PushReadState(_ string, count int64) {
	d.readCounts = append(d.readCounts, count)
}

func (d *stubDispatcher) BroadcastPostEvent(name string, _ models.EnrichedPost) {
	d.broadcasts = append(d.broadcasts, name)
}

type stubMailer struct {
	sent []string
	err  error
}

func (m *stubMailer) Send(to, subject, html string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}

// env bundles the stubbed world a handler test runs against
type env struct {
	echo          *echo.Echo
	users         *stubUserRepo
	posts         *stubPostRepo
	comments      *stubCommentRepo
	notifications *stubNotificationRepo
	dispatcher    *stubDispatcher
	engine        *notifications.Engine

	owner *models.User
	actor *models.User
	post  *models.Post
}

func newEnv(t *testing.T) *env {
	t.Helper()

	owner := &models.User{ID: primitive.NewObjectID(), FullName: "Alice", Email: "alice@example.com", Role: models.RoleUser}
	actor := &models.User{ID: primitive.NewObjectID(), FullName: "Bob", Email: "bob@example.com", Role: models.RoleUser}
	post := &models.Post{ID: primitive.NewObjectID(), UserID: owner.ID, Title: "First post", Category: "General"}

	e := echo.New()
	e.Validator = validators.NewValidator()

	ev := &env{
		echo: e,
		users: &stubUserRepo{users: map[primitive.ObjectID]*models.User{
			owner.ID: owner,
			actor.ID: actor,
		}},
		posts:         &stubPostRepo{posts: map[primitive.ObjectID]*models.Post{post.ID: post}},
		comments:      &stubCommentRepo{comments: map[primitive.ObjectID]*models.Comment{}},
		notifications: &stubNotificationRepo{},
		dispatcher:    &stubDispatcher{},
		owner:         owner,
		actor:         actor,
		post:          post,
	}
	ev.engine = notifications.NewEngine(ev.notifications, ev.posts, ev.comments, ev.users, ev.dispatcher, zerolog.Nop())
	return ev
}

// request builds an echo context authenticated as the given user
func (ev *env) request(method, target string, body string, as *models.User) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := ev.echo.NewContext(req, rec)
	if as != nil {
		c.Set("user", &models.JwtCustomClaims{UserID: as.ID.Hex(), Email: as.Email, Role: as.Role})
	}
	return c, rec
}

func statusOf(err error, rec *httptest.ResponseRecorder) int {
	if err != nil {
		if he, ok := err.(*echo.HTTPError); ok {
			return he.Code
		}
		return http.StatusInternalServerError
	}
	return rec.Code
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}
