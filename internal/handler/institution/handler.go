package institution

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/doarbem/doar-api/internal/handler"
	"github.com/doarbem/doar-api/internal/model"
	"github.com/doarbem/doar-api/internal/service/institution"
	"github.com/doarbem/doar-api/internal/service/rating"
)

type Handler struct {
	service *institution.Service
	ratings *rating.Service
}

func NewHandler(service *institution.Service, ratings *rating.Service) *Handler {
	return &Handler{
		service: service,
		ratings: ratings,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	institutions := r.Group("/instituicoes")
	{
		institutions.GET("/:id", h.Get)
		institutions.GET("/:id/projetos", h.ListProjects)
		institutions.GET("/:id/avaliacoes", h.ListRatings)
	}
	r.GET("/projetos/:id", h.GetProject)
}

// Get returns the institution profile with its points tier.
func (h *Handler) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	profile, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(profile))
}

func (h *Handler) ListProjects(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	filters := &model.ProjectFilters{
		InstitutionID: id,
		OnlyActive:    c.Query("ativos") == "true",
	}
	projects, err := h.service.ListProjects(c.Request.Context(), filters)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(projects))
}

func (h *Handler) ListRatings(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	ratings, err := h.ratings.ListForInstitution(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(ratings))
}

func (h *Handler) GetProject(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	project, err := h.service.GetProject(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(project))
}

func (h *Handler) pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid id"))
		return uuid.Nil, false
	}
	return id, true
}
