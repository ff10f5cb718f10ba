package handlers

import (
	"net/http"

	"github.com/anonto42/medfeed/backend/internal/realtime"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WSHandler upgrades HTTP connections to websocket sessions and attaches
// them to the hub
type WSHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewWSHandler creates a new WSHandler
func NewWSHandler(hub *realtime.Hub, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger.With().Str("component", "ws").Logger(),
	}
}

// RegisterWSRoutes registers the websocket endpoint
func (h *WSHandler) RegisterWSRoutes(e *echo.Echo) {
	e.GET("/ws", h.HandleWebSocket)
}

// HandleWebSocket upgrades the connection and runs the session until the
// client disconnects. A client may declare its owning user with the
// userId query parameter to receive per-user pushes; anonymous sessions
// get public broadcasts only.
func (h *WSHandler) HandleWebSocket(c echo.Context) error {
	userID := c.QueryParam("userId")
	if userID != "" {
		if _, err := primitive.ObjectIDFromHex(userID); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid userId")
		}
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return err
	}

	client := realtime.NewClient(h.hub, conn, userID)
	h.logger.Debug().Str("user", client.UserID()).Msg("session connected")
	client.Run()
	h.logger.Debug().Str("user", client.UserID()).Msg("session disconnected")
	return nil
}
