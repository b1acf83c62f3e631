package model

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthRequest types
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type RegisterRequest struct {
	Email         string     `json:"email" binding:"required,email"`
	Password      string     `json:"password" binding:"required,min=8"`
	Name          string     `json:"nome" binding:"required"`
	Type          string     `json:"tipo" binding:"required,oneof=doador instituicao"`
	InstitutionID *uuid.UUID `json:"instituicao_id"`
}

// AuthResponse types
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Auth errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// TokenClaims represents JWT claims
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID        uuid.UUID  `json:"user_id"`
	Email         string     `json:"email"`
	Type          string     `json:"type"`
	InstitutionID *uuid.UUID `json:"instituicao_id,omitempty"`
}
