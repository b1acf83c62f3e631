package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/doarbem/doar-api/internal/middleware"
)

// CurrentUserID returns the authenticated user's id, set by the auth
// middleware.
func CurrentUserID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetString(middleware.ContextUserID))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// CurrentInstitutionID returns the institution the caller belongs to, when
// the token carries one.
func CurrentInstitutionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetString(middleware.ContextInstitutionID))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
