package router

import (
	"github.com/anonto42/medfeed/backend/internal/handlers"
	"github.com/anonto42/medfeed/backend/internal/middleware"
	"github.com/anonto42/medfeed/backend/internal/notifications"
	"github.com/anonto42/medfeed/backend/internal/realtime"
	"github.com/anonto42/medfeed/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
}

// Deps bundles everything the router needs besides the database
type Deps struct {
	DB        *mongo.Database
	Hub       *realtime.Hub
	Mailer    handlers.Mailer
	JWTSecret string
	Logger    zerolog.Logger
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, deps Deps) {
	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)
	e.GET("/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"message": "API Running..."})
	})

	// --- Initialize Repositories ---
	userRepo := repositories.NewMongoUserRepository(deps.DB)
	postRepo := repositories.NewMongoPostRepository(deps.DB)
	commentRepo := repositories.NewMongoCommentRepository(deps.DB)
	notificationRepo := repositories.NewMongoNotificationRepository(deps.DB)

	// --- Notification engine ---
	engine := notifications.NewEngine(notificationRepo, postRepo, commentRepo, userRepo, deps.Hub, deps.Logger)

	// --- Websocket endpoint (clients join before or without authenticating) ---
	wsHandler := handlers.NewWSHandler(deps.Hub, deps.Logger)
	wsHandler.RegisterWSRoutes(e)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/users")
	authHandler := handlers.NewAuthHandler(userRepo, deps.Mailer, deps.JWTSecret, deps.Logger)
	authHandler.RegisterAuthRoutes(authGroup)

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(deps.JWTSecret))

	// User profile routes
	userHandler := handlers.NewUserHandler(userRepo)
	userHandler.RegisterProfileRoutes(api)

	// Post routes
	postHandler := handlers.NewPostHandler(postRepo, userRepo, commentRepo, engine, deps.Hub, deps.Logger)
	postHandler.RegisterPostRoutes(api)

	// Comment routes
	commentHandler := handlers.NewCommentHandler(commentRepo, postRepo, userRepo, engine, deps.Logger)
	commentHandler.RegisterCommentRoutes(api)

	// Notification routes
	notificationHandler := handlers.NewNotificationHandler(engine)
	notificationHandler.RegisterNotificationRoutes(api)

	deps.Logger.Info().Msg("all routes configured")
}
