package handlers

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/anonto42/medfeed/backend/internal/models"
	"github.com/anonto42/medfeed/backend/internal/repositories"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// Mailer sends transactional mail. Satisfied by *mailer.SMTPMailer.
type Mailer interface {
	Send(to, subject, html string) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	userRepository repositories.UserRepository
	mailer         Mailer
	jwtSecret      string
	logger         zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler. jwtSecret must be the same
// secret the auth middleware validates with.
func NewAuthHandler(userRepo repositories.UserRepository, mailer Mailer, jwtSecret string, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		userRepository: userRepo,
		mailer:         mailer,
		jwtSecret:      jwtSecret,
		logger:         logger.With().Str("component", "auth").Logger(),
	}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/login", h.Login)
	g.POST("/forgot-password", h.ForgotPassword)
	g.POST("/reset-password", h.ResetPassword)
}

// Login authenticates with email or member user_id. Accounts seeded before
// hashing was introduced still store plaintext passwords, so the stored
// format is resolved per attempt before verifying.
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByLogin(c.Request().Context(), req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid Email or User ID")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var isMatch bool
	switch models.DetectPasswordFormat(user.Password) {
	case models.PasswordHashed:
		isMatch = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) == nil
	case models.PasswordPlaintext:
		isMatch = subtle.ConstantTimeCompare([]byte(user.Password), []byte(req.Password)) == 1
	}
	if !isMatch {
		return echo.NewHTTPError(http.StatusBadRequest, "Wrong Password")
	}

	token, err := h.generateJWT(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Login Success",
		"token":   token,
		"user":    user,
	})
}

// ForgotPassword generates a 6-digit OTP, stores its SHA-256 hash with a
// 10-minute expiry and mails the code to the account's email.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req models.ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByEmail(c.Request().Context(), req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found with this email")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	otp, err := generateOTP()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate OTP")
	}

	expire := time.Now().Add(10 * time.Minute)
	if err := h.userRepository.SetResetToken(c.Request().Context(), user.ID.Hex(), hashOTP(otp), expire); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	message := fmt.Sprintf(`
		<h1>Password Reset OTP</h1>
		<p>Your OTP (One Time Password) for password reset is:</p>
		<h2 style="color: #4F46E5; letter-spacing: 5px;">%s</h2>
		<p>This code expires in 10 minutes.</p>
	`, otp)

	if err := h.mailer.Send(user.Email, "Password Reset OTP", message); err != nil {
		h.logger.Error().Err(err).Str("email", user.Email).Msg("reset mail failed")
		// Do not leave a live OTP behind if the user never received it
		if clearErr := h.userRepository.ClearResetToken(c.Request().Context(), user.ID.Hex()); clearErr != nil {
			h.logger.Error().Err(clearErr).Msg("clear reset token failed")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Email could not be sent")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": "OTP sent to email"})
}

// ResetPassword verifies the OTP and replaces the password with a bcrypt hash
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req models.ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByResetToken(c.Request().Context(), req.Email, hashOTP(req.OTP))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid OTP or Email")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password")
	}

	if err := h.userRepository.UpdatePassword(c.Request().Context(), user.ID.Hex(), string(hashedPassword)); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.userRepository.ClearResetToken(c.Request().Context(), user.ID.Hex()); err != nil {
		h.logger.Error().Err(err).Msg("clear reset token failed")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": "Password Updated Success"})
}

// generateJWT generates a JWT token for a given user
func (h *AuthHandler) generateJWT(user *models.User) (string, error) {
	claims := &models.JwtCustomClaims{
		UserID: user.ID.Hex(),
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 24 * 7)), // Token expires in 7 days
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		return "", err
	}
	return t, nil
}

// generateOTP returns a 6-digit numeric one-time password
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// hashOTP returns the hex SHA-256 of the OTP; only the hash is stored
func hashOTP(otp string) string {
	sum := sha256.Sum256([]byte(otp))
	return hex.EncodeToString(sum[:])
}
