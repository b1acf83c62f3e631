package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/doarbem/doar-api/internal/model"
	"github.com/doarbem/doar-api/pkg/auth"
)

const (
	ContextUserID        = "user_id"
	ContextUserEmail     = "user_email"
	ContextUserType      = "user_type"
	ContextInstitutionID = "instituicao_id"
)

type AuthMiddleware struct {
	tokens *auth.TokenManager
}

func NewAuthMiddleware(tokens *auth.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Authenticate verifies the bearer token and sets the caller's identity
// in the request context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code:    http.StatusUnauthorized,
				Message: "missing authorization header",
			})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code:    http.StatusUnauthorized,
				Message: "invalid authorization format",
			})
			return
		}

		claims, err := m.tokens.Validate(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code:    http.StatusUnauthorized,
				Message: "invalid token",
			})
			return
		}

		c.Set(ContextUserID, claims.UserID.String())
		c.Set(ContextUserEmail, claims.Email)
		c.Set(ContextUserType, claims.Type)
		if claims.InstitutionID != nil {
			c.Set(ContextInstitutionID, claims.InstitutionID.String())
		}
		c.Next()
	}
}

// RequireDonor restricts a route to donor accounts.
func (m *AuthMiddleware) RequireDonor() gin.HandlerFunc {
	return m.requireType(model.UserTypeDonor)
}

// RequireInstitution restricts a route to institution accounts.
func (m *AuthMiddleware) RequireInstitution() gin.HandlerFunc {
	return m.requireType(model.UserTypeInstitution)
}

func (m *AuthMiddleware) requireType(userType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextUserType) != userType {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Code:    http.StatusForbidden,
				Message: "access restricted to " + userType + " accounts",
			})
			return
		}
		c.Next()
	}
}
