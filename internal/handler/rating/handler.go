package rating

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/doarbem/doar-api/internal/handler"
	"github.com/doarbem/doar-api/internal/middleware"
	"github.com/doarbem/doar-api/internal/model"
	"github.com/doarbem/doar-api/internal/service/rating"
)

type Handler struct {
	service *rating.Service
}

func NewHandler(service *rating.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	r.POST("/avaliacoes", auth.RequireDonor(), h.Create)
}

func (h *Handler) Create(c *gin.Context) {
	donorID, ok := handler.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid user"))
		return
	}

	var req model.CreateRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	created, err := h.service.Save(c.Request.Context(), donorID, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}
