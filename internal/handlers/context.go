package handlers

import (
	"github.com/anonto42/medfeed/backend/internal/models"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// getUserClaims extracts the JWT claims set by the auth middleware
func getUserClaims(c echo.Context) *models.JwtCustomClaims {
	claims, ok := c.Get("user").(*models.JwtCustomClaims)
	if !ok {
		return nil
	}
	return claims
}

// getUserIDFromContext returns the authenticated user's ObjectID, or the
// zero value when the request is unauthenticated or the claim is malformed
func getUserIDFromContext(c echo.Context) primitive.ObjectID {
	claims := getUserClaims(c)
	if claims == nil {
		return primitive.NilObjectID
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return primitive.NilObjectID
	}
	return id
}
