package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/medfeed/backend/internal/models"
	"github.com/anonto42/medfeed/backend/internal/notifications"
	"github.com/anonto42/medfeed/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	commentRepository repositories.CommentRepository
	postRepository    repositories.PostRepository
	userRepository    repositories.UserRepository
	engine            *notifications.Engine
	logger            zerolog.Logger
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(
	commentRepo repositories.CommentRepository,
	postRepo repositories.PostRepository,
	userRepo repositories.UserRepository,
	engine *notifications.Engine,
	logger zerolog.Logger,
) *CommentHandler {
	return &CommentHandler{
		commentRepository: commentRepo,
		postRepository:    postRepo,
		userRepository:    userRepo,
		engine:            engine,
		logger:            logger.With().Str("component", "comments").Logger(),
	}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/comments", h.CreateComment)
	g.GET("/comments/:postId", h.GetComments)
	g.DELETE("/comments/:id", h.DeleteComment)
}

// CreateComment creates a top-level comment or a reply. For replies the
// declared parent must exist and belong to the same post; the parent's
// author is captured as the mentioned user. The notification engine runs
// after the comment is persisted and never fails the request.
func (h *CommentHandler) CreateComment(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	post, err := h.postRepository.GetPostByID(c.Request().Context(), req.PostID)
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

	var parent *models.Comment
	if req.ParentComment != "" {
		parent, err = h.commentRepository.GetCommentByID(c.Request().Context(), req.ParentComment)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "Parent comment not found")
			}
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid parent comment ID")
		}
		if parent.PostID != post.ID {
			return echo.NewHTTPError(http.StatusBadRequest, "Parent comment belongs to a different post")
		}
	}

	comment := &models.Comment{
		PostID:  post.ID,
		UserID:  user.ID,
		Content: req.Content,
		Files:   req.Files,
	}
	if parent != nil {
		parentID := parent.ID
		mentioned := parent.UserID
		comment.ParentComment = &parentID
		comment.MentionedUser = &mentioned
	}

	if err := h.commentRepository.CreateComment(c.Request().Context(), comment); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// Post-commit hook: notification + push, absorbed on failure
	h.engine.CommentCreated(c.Request().Context(), user, post, comment, parent)

	return c.JSON(http.StatusOK, echo.Map{"message": "Comment added", "comment": comment})
}

// GetComments retrieves all comments for a post, newest first
func (h *CommentHandler) GetComments(c echo.Context) error {
	postID := c.Param("postId")

	_, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	comments, err := h.commentRepository.GetCommentsByPostID(c.Request().Context(), postID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	enriched := make([]models.EnrichedComment, len(comments))
	authorCache := make(map[primitive.ObjectID]models.UserCompact)
	for i, cm := range comments {
		enriched[i] = models.EnrichedComment{Comment: cm}
		if author, ok := authorCache[cm.UserID]; ok {
			enriched[i].Author = author
		} else if user, err := h.userRepository.GetUserByID(c.Request().Context(), cm.UserID.Hex()); err == nil {
			compact := user.ToCompact()
			authorCache[cm.UserID] = compact
			enriched[i].Author = compact
		}
	}

	return c.JSON(http.StatusOK, enriched)
}

// DeleteComment deletes a comment. Only the author (or a superadmin) may
// delete. Direct replies are deleted with it; deeper reply chains are not
// followed.
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	claims := getUserClaims(c)
	currentUserID := getUserIDFromContext(c)
	if claims == nil || currentUserID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	comment, err := h.commentRepository.GetCommentByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Comment not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid comment ID")
	}

	if comment.UserID != currentUserID && claims.Role != models.RoleSuperAdmin {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to delete this comment")
	}

	if err := h.commentRepository.DeleteComment(c.Request().Context(), comment.ID.Hex()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// Replies nest one level, so only top-level comments can have children
	if !comment.IsReply() {
		deleted, err := h.commentRepository.DeleteDirectReplies(c.Request().Context(), comment.ID)
		if err != nil {
			h.logger.Error().Err(err).Str("comment", comment.ID.Hex()).Msg("reply cascade failed")
		} else if deleted > 0 {
			h.logger.Info().Str("comment", comment.ID.Hex()).Int64("replies", deleted).Msg("cascade deleted replies")
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Comment deleted"})
}
