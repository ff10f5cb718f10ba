package models

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles
const (
	RoleUser       = "user"
	RoleSuperAdmin = "superadmin"
)

// User represents a member account stored in MongoDB
type User struct {
	ID          primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	UserID      string               `json:"user_id,omitempty" bson:"user_id,omitempty"` // member ID, usable as a login alias
	FullName    string               `json:"fullname" bson:"fullname"`
	Email       string               `json:"email" bson:"email"`
	Password    string               `json:"-" bson:"password"`
	PhoneNumber string               `json:"phonenumber,omitempty" bson:"phonenumber,omitempty"`
	ProfileURL  string               `json:"profile_url,omitempty" bson:"profile_url,omitempty"`
	Role        string               `json:"role" bson:"role"`
	SavedPosts  []primitive.ObjectID `json:"savedPosts" bson:"savedPosts"`

	ResetPasswordToken  string    `json:"-" bson:"resetPasswordToken,omitempty"`
	ResetPasswordExpire time.Time `json:"-" bson:"resetPasswordExpire,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// UserCompact is the slimmed-down user shape embedded in API responses
type UserCompact struct {
	ID         primitive.ObjectID `json:"id"`
	FullName   string             `json:"fullname"`
	Email      string             `json:"email,omitempty"`
	ProfileURL string             `json:"profile_url,omitempty"`
}

// ToCompact returns the embeddable representation of the user
func (u *User) ToCompact() UserCompact {
	return UserCompact{
		ID:         u.ID,
		FullName:   u.FullName,
		Email:      u.Email,
		ProfileURL: u.ProfileURL,
	}
}

// PasswordFormat tags how a stored credential must be verified. Accounts
// seeded before hashing was introduced still carry plaintext passwords.
type PasswordFormat int

const (
	PasswordHashed PasswordFormat = iota
	PasswordPlaintext
)

// DetectPasswordFormat resolves the stored credential format once, at
// verification time. Only bcrypt prefixes count as hashed.
func DetectPasswordFormat(stored string) PasswordFormat {
	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") {
		return PasswordHashed
	}
	return PasswordPlaintext
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"` // email or member user_id
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	OTP      string `json:"otp" validate:"required,len=6"`
	Password string `json:"password" validate:"required,min=8"`
}

type UpdateProfileImageRequest struct {
	ProfileURL string `json:"profile_url" validate:"required,url"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
