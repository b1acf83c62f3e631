package donation

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/doarbem/doar-api/internal/handler"
	"github.com/doarbem/doar-api/internal/middleware"
	"github.com/doarbem/doar-api/internal/model"
	"github.com/doarbem/doar-api/internal/service/donation"
)

type Handler struct {
	service *donation.Service
}

func NewHandler(service *donation.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	donations := r.Group("/doacoes")
	{
		donations.POST("", auth.RequireDonor(), h.Create)
		donations.GET("", h.List)
		donations.GET("/:id", h.Get)
		donations.POST("/:id/cancelar", h.Cancel)

		donations.POST("/:id/agendar-busca", auth.RequireInstitution(), h.SchedulePickup)
		donations.POST("/:id/confirmar-busca", auth.RequireInstitution(), h.ConfirmPickup)
		donations.POST("/:id/confirmar-recebimento", auth.RequireInstitution(), h.ConfirmReceipt)
		donations.POST("/:id/marcar-coletada", auth.RequireInstitution(), h.MarkCollected)

		donations.POST("/:id/confirmar", auth.RequireDonor(), h.ConfirmByDonor)
		donations.POST("/:id/marcar-entregue", auth.RequireDonor(), h.MarkDelivered)
	}
}

func (h *Handler) Create(c *gin.Context) {
	donorID, ok := handler.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid user"))
		return
	}

	var req model.CreateDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	created, err := h.service.Create(c.Request.Context(), donorID, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}

// List scopes results to the caller: donors see their own donations,
// institution members see their institution's.
func (h *Handler) List(c *gin.Context) {
	filters := &model.DonationFilters{}

	switch c.GetString(middleware.ContextUserType) {
	case model.UserTypeDonor:
		donorID, ok := handler.CurrentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid user"))
			return
		}
		filters.DonorID = donorID
	case model.UserTypeInstitution:
		institutionID, ok := handler.CurrentInstitutionID(c)
		if !ok {
			c.JSON(http.StatusForbidden, handler.NewErrorResponse("token carries no institution"))
			return
		}
		filters.InstitutionID = institutionID
	}

	if status := c.Query("status"); status != "" {
		s := model.DonationStatus(status)
		if !s.Valid() {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid status filter"))
			return
		}
		filters.Status = s
	}
	if projectID := c.Query("projeto_id"); projectID != "" {
		id, err := uuid.Parse(projectID)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid project id"))
			return
		}
		filters.ProjectID = id
	}

	donations, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(donations))
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid donation id"))
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid user"))
		return
	}

	found, err := h.service.Get(c.Request.Context(), id, actor)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(found))
}

func (h *Handler) SchedulePickup(c *gin.Context) {
	h.institutionAction(c, h.service.SchedulePickup)
}

func (h *Handler) ConfirmPickup(c *gin.Context) {
	h.institutionAction(c, h.service.ConfirmPickup)
}

func (h *Handler) ConfirmReceipt(c *gin.Context) {
	h.institutionAction(c, h.service.ConfirmReceipt)
}

func (h *Handler) MarkCollected(c *gin.Context) {
	h.institutionAction(c, h.service.MarkCollected)
}

func (h *Handler) ConfirmByDonor(c *gin.Context) {
	h.donorAction(c, h.service.ConfirmByDonor)
}

func (h *Handler) MarkDelivered(c *gin.Context) {
	h.donorAction(c, h.service.MarkDelivered)
}

func (h *Handler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid donation id"))
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid user"))
		return
	}

	var req model.CancelDonationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
			return
		}
	}

	if err := h.service.Cancel(c.Request.Context(), id, actor, req.Reason); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

// currentActor builds the service-level caller identity from the token
// context.
func currentActor(c *gin.Context) (donation.Actor, bool) {
	userID, ok := handler.CurrentUserID(c)
	if !ok {
		return donation.Actor{}, false
	}
	actor := donation.Actor{UserID: userID}
	if institutionID, ok := handler.CurrentInstitutionID(c); ok {
		actor.InstitutionID = &institutionID
	}
	return actor, true
}

func (h *Handler) institutionAction(c *gin.Context, fn func(ctx context.Context, id, institutionID uuid.UUID) error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid donation id"))
		return
	}
	institutionID, ok := handler.CurrentInstitutionID(c)
	if !ok {
		c.JSON(http.StatusForbidden, handler.NewErrorResponse("token carries no institution"))
		return
	}

	if err := fn(c.Request.Context(), id, institutionID); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) donorAction(c *gin.Context, fn func(ctx context.Context, id, donorID uuid.UUID) error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid donation id"))
		return
	}
	donorID, ok := handler.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid user"))
		return
	}

	if err := fn(c.Request.Context(), id, donorID); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
