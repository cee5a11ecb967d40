package handler

import (
	"net/http"

	"ideahub/internal/middleware"
	"ideahub/internal/model"
	"ideahub/internal/service"
	"ideahub/pkg/response"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	dashboardService service.DashboardService
	gate             *middleware.Auth
}

// NewDashboardHandler creates a new handler for the role dashboards
func NewDashboardHandler(dashboardService service.DashboardService, gate *middleware.Auth) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService, gate: gate}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *DashboardHandler) RegisterRoutes(router *gin.RouterGroup) {
	dashboard := router.Group("/dashboard")
	{
		dashboard.GET("/submitter", h.gate.RequireRole(model.RoleSubmitter), h.GetSubmitterDashboard)
		dashboard.GET("/evaluator", h.gate.RequireRole(model.RoleEvaluator), h.GetEvaluatorDashboard)
		dashboard.GET("/management", h.gate.RequireRole(model.RoleManagement), h.GetManagementDashboard)
		dashboard.GET("/management/export", h.gate.RequireRole(model.RoleManagement), h.ExportManagement)
	}
	router.POST("/evaluations", h.gate.RequireRole(model.RoleEvaluator), h.CreateEvaluation)
}

// GetSubmitterDashboard handles GET /api/dashboard/submitter
// @Summary      Submitter dashboard
// @Description  The caller's ideas, newest first, with status counts
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200      {object}  response.Response{data=service.SubmitterDashboard}
// @Failure      401      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/dashboard/submitter [get]
func (h *DashboardHandler) GetSubmitterDashboard(c *gin.Context) {
	dash, err := h.dashboardService.GetSubmitterDashboard(c.Request.Context(), middleware.SessionFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, dash))
}

// GetEvaluatorDashboard handles GET /api/dashboard/evaluator
// @Summary      Evaluator dashboard
// @Description  Ideas awaiting evaluation, oldest submission first, and the caller's evaluations
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200      {object}  response.Response{data=service.EvaluatorDashboard}
// @Failure      401      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/dashboard/evaluator [get]
func (h *DashboardHandler) GetEvaluatorDashboard(c *gin.Context) {
	dash, err := h.dashboardService.GetEvaluatorDashboard(c.Request.Context(), middleware.SessionFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, dash))
}

// GetManagementDashboard handles GET /api/dashboard/management
// @Summary      Management dashboard
// @Description  All ideas with aggregate stats and chart buckets by category and status
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200      {object}  response.Response{data=service.ManagementDashboard}
// @Failure      401      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/dashboard/management [get]
func (h *DashboardHandler) GetManagementDashboard(c *gin.Context) {
	dash, err := h.dashboardService.GetManagementDashboard(c.Request.Context(), middleware.SessionFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, dash))
}

// ExportManagement handles GET /api/dashboard/management/export
// @Summary      Export ideas as xlsx
// @Tags         dashboard
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Success      200
// @Failure      403      {object}  response.Response
// @Router       /api/dashboard/management/export [get]
func (h *DashboardHandler) ExportManagement(c *gin.Context) {
	file, err := h.dashboardService.ExportManagement(c.Request.Context(), middleware.SessionFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// CreateEvaluation handles POST /api/evaluations
// @Summary      Evaluate an idea
// @Tags         evaluations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateEvaluationRequest  true  "Evaluation"
// @Success      201      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/evaluations [post]
func (h *DashboardHandler) CreateEvaluation(c *gin.Context) {
	var req service.CreateEvaluationRequest
	if !bindJSON(c, &req) {
		return
	}
	evaluation, err := h.dashboardService.CreateEvaluation(c.Request.Context(), middleware.SessionFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, evaluation))
}
