package notification

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/doarbem/doar-api/internal/handler"
	"github.com/doarbem/doar-api/internal/model"
	"github.com/doarbem/doar-api/internal/service/notification"
)

type Handler struct {
	service *notification.Service
}

func NewHandler(service *notification.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notificacoes")
	{
		notifications.GET("", h.List)
		notifications.GET("/contador", h.CountUnread)
		notifications.POST("/:id/ler", h.MarkRead)
		notifications.POST("/:id/responder", h.Respond)
		notifications.DELETE("/:id", h.Delete)
	}
}

func (h *Handler) List(c *gin.Context) {
	userID, ok := handler.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid user"))
		return
	}

	onlyUnread := c.Query("nao_lidas") == "true"
	notifications, err := h.service.ListForUser(c.Request.Context(), userID, onlyUnread)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(notifications))
}

func (h *Handler) CountUnread(c *gin.Context) {
	userID, ok := handler.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid user"))
		return
	}

	count, err := h.service.CountUnread(c.Request.Context(), userID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"nao_lidas": count}))
}

func (h *Handler) MarkRead(c *gin.Context) {
	id, userID, ok := h.idAndUser(c)
	if !ok {
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), id, userID); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) Respond(c *gin.Context) {
	id, userID, ok := h.idAndUser(c)
	if !ok {
		return
	}

	var req model.RespondNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Confirmed == nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("confirmou is required"))
		return
	}

	if err := h.service.Respond(c.Request.Context(), id, userID, *req.Confirmed); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) Delete(c *gin.Context) {
	id, userID, ok := h.idAndUser(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, userID); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) idAndUser(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid notification id"))
		return uuid.Nil, uuid.Nil, false
	}
	userID, ok := handler.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid user"))
		return uuid.Nil, uuid.Nil, false
	}
	return id, userID, true
}
