package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/anonto42/medfeed/backend/internal/models"
	"github.com/anonto42/medfeed/backend/internal/notifications"
	"github.com/anonto42/medfeed/backend/internal/realtime"
	"github.com/anonto42/medfeed/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Broadcaster announces post events to every live session. Satisfied by
// *realtime.Hub.
type Broadcaster interface {
	BroadcastPostEvent(name string, post models.EnrichedPost)
}

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	postRepository    repositories.PostRepository
	userRepository    repositories.UserRepository
	commentRepository repositories.CommentRepository // cascade on delete
	engine            *notifications.Engine
	broadcaster       Broadcaster
	logger            zerolog.Logger
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(
	postRepo repositories.PostRepository,
	userRepo repositories.UserRepository,
	commentRepo repositories.CommentRepository,
	engine *notifications.Engine,
	broadcaster Broadcaster,
	logger zerolog.Logger,
) *PostHandler {
	return &PostHandler{
		postRepository:    postRepo,
		userRepository:    userRepo,
		commentRepository: commentRepo,
		engine:            engine,
		broadcaster:       broadcaster,
		logger:            logger.With().Str("component", "posts").Logger(),
	}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts", h.GetAllPosts)
	g.GET("/posts/user/:userId", h.GetPostsByUser)
	g.GET("/posts/saved/all", h.GetSavedPosts)
	g.PUT("/posts/save/:id", h.ToggleSavePost)
	g.PUT("/posts/like/:id", h.ToggleLikePost)
	g.PUT("/posts/:id", h.UpdatePost)
	g.DELETE("/posts/:id", h.DeletePost)
	g.GET("/posts/:id", h.GetPostByID)
}

// CreatePost creates a new post and broadcasts it to all live sessions
func (h *PostHandler) CreatePost(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if len(req.Images) > models.MaxPostImages {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("A post may carry at most %d images", models.MaxPostImages))
	}

	user, err := h.userRepository.GetUserByID(c.Request().Context(), currentUserID.Hex())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Authenticated user not found in database")
	}

	post := &models.Post{
		UserID:   user.ID,
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		Images:   req.Images,
	}
	if err := h.postRepository.CreatePost(c.Request().Context(), post); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	enriched := models.EnrichedPost{Post: *post, Author: user.ToCompact()}
	h.broadcaster.BroadcastPostEvent(realtime.EventPostNew, enriched)

	return c.JSON(http.StatusCreated, echo.Map{"message": "Post created", "post": post})
}

// GetAllPosts retrieves all posts newest first with pagination
func (h *PostHandler) GetAllPosts(c echo.Context) error {
	page, _ := strconv.ParseInt(c.QueryParam("page"), 10, 64)
	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}

	posts, err := h.postRepository.GetAllPosts(c.Request().Context(), (page-1)*limit, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, h.enrichPosts(c, posts))
}

// GetPostsByUser retrieves posts created by a specific user
func (h *PostHandler) GetPostsByUser(c echo.Context) error {
	page, _ := strconv.ParseInt(c.QueryParam("page"), 10, 64)
	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}

	posts, err := h.postRepository.GetPostsByUserID(c.Request().Context(), c.Param("userId"), (page-1)*limit, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	return c.JSON(http.StatusOK, h.enrichPosts(c, posts))
}

// GetPostByID retrieves a single post
func (h *PostHandler) GetPostByID(c echo.Context) error {
	post, err := h.postRepository.GetPostByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	enriched := h.enrichPosts(c, []models.Post{*post})
	return c.JSON(http.StatusOK, enriched[0])
}

// UpdatePost updates an existing post. Only the owner may update.
func (h *PostHandler) UpdatePost(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.UpdatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if len(req.Images) > models.MaxPostImages {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("A post may carry at most %d images", models.MaxPostImages))
	}

	post, err := h.postRepository.GetPostByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	if post.UserID != currentUserID {
		return echo.NewHTTPError(http.StatusForbidden, "Not allowed")
	}

	if req.Title != "" {
		post.Title = req.Title
	}
	if req.Content != "" {
		post.Content = req.Content
	}
	if req.Category != "" {
		post.Category = req.Category
	}
	if req.Images != nil {
		post.Images = req.Images
	}

	if err := h.postRepository.UpdatePost(c.Request().Context(), post.ID.Hex(), post); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Post updated", "post": post})
}

// DeletePost deletes a post. The owner may delete their own post; a
// superadmin may delete any. Comments on the post are deleted with it;
// notifications referencing it are left behind and filtered out at read
// time.
func (h *PostHandler) DeletePost(c echo.Context) error {
	claims := getUserClaims(c)
	currentUserID := getUserIDFromContext(c)
	if claims == nil || currentUserID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	post, err := h.postRepository.GetPostByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	if post.UserID != currentUserID && claims.Role != models.RoleSuperAdmin {
		return echo.NewHTTPError(http.StatusForbidden, "Not allowed")
	}

	if err := h.postRepository.DeletePost(c.Request().Context(), post.ID.Hex()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	deleted, err := h.commentRepository.DeleteByPostID(c.Request().Context(), post.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("post", post.ID.Hex()).Msg("comment cascade failed")
	} else if deleted > 0 {
		h.logger.Info().Str("post", post.ID.Hex()).Int64("comments", deleted).Msg("cascade deleted comments")
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Post deleted"})
}

// ToggleLikePost flips the authenticated user's membership in the post's
// like set. A not-liked-to-liked transition notifies the post owner; the
// updated like count is always broadcast.
func (h *PostHandler) ToggleLikePost(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	post, err := h.postRepository.GetPostByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	user, err := h.userRepository.GetUserByID(c.Request().Context(), currentUserID.Hex())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Authenticated user not found in database")
	}

	liked := post.LikedBy(currentUserID)
	if liked {
		if err := h.postRepository.RemoveLike(c.Request().Context(), post.ID.Hex(), currentUserID); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		post.Likes = removeID(post.Likes, currentUserID)
	} else {
		if err := h.postRepository.AddLike(c.Request().Context(), post.ID.Hex(), currentUserID); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		post.Likes = append(post.Likes, currentUserID)

		// Secondary side-effect, absorbed on failure
		h.engine.PostLiked(c.Request().Context(), user, post)
	}

	enriched := models.EnrichedPost{Post: *post, LikesCount: len(post.Likes)}
	if author, err := h.userRepository.GetUserByID(c.Request().Context(), post.UserID.Hex()); err == nil {
		enriched.Author = author.ToCompact()
	}
	h.broadcaster.BroadcastPostEvent(realtime.EventPostUpdated, enriched)

	return c.JSON(http.StatusOK, echo.Map{
		"message":     "Like toggled",
		"liked":       !liked,
		"likes_count": len(post.Likes),
	})
}

// ToggleSavePost flips the post's membership in the user's saved set
func (h *PostHandler) ToggleSavePost(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	post, err := h.postRepository.GetPostByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	user, err := h.userRepository.GetUserByID(c.Request().Context(), currentUserID.Hex())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Authenticated user not found in database")
	}

	saved := false
	for _, id := range user.SavedPosts {
		if id == post.ID {
			saved = true
			break
		}
	}

	if saved {
		err = h.userRepository.RemoveSavedPost(c.Request().Context(), currentUserID.Hex(), post.ID)
	} else {
		err = h.userRepository.AddSavedPost(c.Request().Context(), currentUserID.Hex(), post.ID)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"saved": !saved}})
}

// GetSavedPosts returns the authenticated user's saved posts
func (h *PostHandler) GetSavedPosts(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	user, err := h.userRepository.GetUserByID(c.Request().Context(), currentUserID.Hex())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Authenticated user not found in database")
	}

	posts, err := h.postRepository.GetPostsByIDs(c.Request().Context(), user.SavedPosts)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, h.enrichPosts(c, posts))
}

// enrichPosts fills in author details and like counts for feed responses
func (h *PostHandler) enrichPosts(c echo.Context, posts []models.Post) []models.EnrichedPost {
	enriched := make([]models.EnrichedPost, len(posts))
	authorCache := make(map[primitive.ObjectID]models.UserCompact)

	for i, p := range posts {
		enriched[i] = models.EnrichedPost{Post: p, LikesCount: len(p.Likes)}
		if author, ok := authorCache[p.UserID]; ok {
			enriched[i].Author = author
		} else if user, err := h.userRepository.GetUserByID(c.Request().Context(), p.UserID.Hex()); err == nil {
			compact := user.ToCompact()
			authorCache[p.UserID] = compact
			enriched[i].Author = compact
		}
	}
	return enriched
}

func removeID(ids []primitive.ObjectID, target primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}
