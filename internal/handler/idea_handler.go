package handler

import (
	"net/http"

	"ideahub/internal/middleware"
	"ideahub/internal/model"
	"ideahub/internal/service"
	"ideahub/pkg/response"

	"github.com/gin-gonic/gin"
)

type IdeaHandler struct {
	ideaService service.IdeaService
	gate        *middleware.Auth
}

func NewIdeaHandler(ideaService service.IdeaService, gate *middleware.Auth) *IdeaHandler {
	return &IdeaHandler{ideaService: ideaService, gate: gate}
}

func (h *IdeaHandler) RegisterRoutes(router *gin.RouterGroup) {
	ideas := router.Group("/ideas")
	{
		ideas.POST("", h.gate.RequireRole(model.RoleSubmitter), h.CreateIdea)
		ideas.POST("/:id/submit", h.gate.RequireRole(model.RoleSubmitter), h.SubmitIdea)
		ideas.PATCH("/:id/status", h.gate.RequireRole(model.RoleEvaluator, model.RoleManagement), h.UpdateStatus)
	}
}

// CreateIdea handles POST /api/ideas
// @Summary      Create an idea
// @Description  Submits the idea immediately unless draft is set
// @Tags         ideas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateIdeaRequest  true  "Idea"
// @Success      201      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/ideas [post]
func (h *IdeaHandler) CreateIdea(c *gin.Context) {
	var req service.CreateIdeaRequest
	if !bindJSON(c, &req) {
		return
	}
	idea, err := h.ideaService.CreateIdea(c.Request.Context(), middleware.SessionFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, idea))
}

// SubmitIdea handles POST /api/ideas/:id/submit
// @Summary      Submit a draft idea
// @Tags         ideas
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Idea ID"
// @Success      200      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/ideas/{id}/submit [post]
func (h *IdeaHandler) SubmitIdea(c *gin.Context) {
	idea, err := h.ideaService.SubmitIdea(c.Request.Context(), middleware.SessionFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, idea))
}

// UpdateStatus handles PATCH /api/ideas/:id/status
// @Summary      Move an idea along the review lifecycle
// @Tags         ideas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                           true  "Idea ID"
// @Param        payload  body      service.UpdateIdeaStatusRequest  true  "Status change"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/ideas/{id}/status [patch]
func (h *IdeaHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateIdeaStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	idea, err := h.ideaService.UpdateStatus(c.Request.Context(), middleware.SessionFrom(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, idea))
}
