package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-engage-api/internal/models"
	"github.com/noah-isme/sma-engage-api/internal/service"
	appErrors "github.com/noah-isme/sma-engage-api/pkg/errors"
	"github.com/noah-isme/sma-engage-api/pkg/response"
)

// PointsHandler exposes points-ledger and bonus-task endpoints.
type PointsHandler struct {
	points *service.PointsService
}

// NewPointsHandler constructs handler.
func NewPointsHandler(points *service.PointsService) *PointsHandler {
	return &PointsHandler{points: points}
}

type adjustPointsRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Amount int    `json:"amount" binding:"required"`
	Reason string `json:"reason"`
}

// Summary godoc
// @Summary Get a student's point balance and history
// @Tags Points
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /points/{userId} [get]
func (h *PointsHandler) Summary(c *gin.Context) {
	summary, err := h.points.Summary(c.Request.Context(), c.Param("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Credit godoc
// @Summary Credit points to a student
// @Tags Points
// @Accept json
// @Produce json
// @Param payload body adjustPointsRequest true "Credit payload"
// @Success 200 {object} response.Envelope
// @Router /points/credit [post]
func (h *PointsHandler) Credit(c *gin.Context) {
	var req adjustPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	balance, err := h.points.Credit(c.Request.Context(), req.UserID, req.Amount, models.PointsSourceManual)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"balance": balance}, nil)
}

// Debit godoc
// @Summary Debit points from a student
// @Tags Points
// @Accept json
// @Produce json
// @Param payload body adjustPointsRequest true "Debit payload"
// @Success 200 {object} response.Envelope
// @Router /points/debit [post]
func (h *PointsHandler) Debit(c *gin.Context) {
	var req adjustPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	balance, err := h.points.Debit(c.Request.Context(), req.UserID, req.Amount, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"balance": balance}, nil)
}

// ListTasks godoc
// @Summary List bonus tasks
// @Tags Points
// @Produce json
// @Param active query bool false "Only active tasks"
// @Success 200 {object} response.Envelope
// @Router /bonus-tasks [get]
func (h *PointsHandler) ListTasks(c *gin.Context) {
	tasks, err := h.points.ListTasks(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tasks, nil)
}

// CreateTask godoc
// @Summary Create a bonus task
// @Tags Points
// @Accept json
// @Produce json
// @Param payload body service.CreateBonusTaskRequest true "Task payload"
// @Success 201 {object} response.Envelope
// @Router /bonus-tasks [post]
func (h *PointsHandler) CreateTask(c *gin.Context) {
	var req service.CreateBonusTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.CreatedBy = claims.UserID
	}
	task, err := h.points.CreateTask(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, task, nil)
}

// CompleteTask godoc
// @Summary Complete a bonus task for a student
// @Tags Points
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param payload body service.CompleteBonusTaskRequest true "Completion payload"
// @Success 200 {object} response.Envelope
// @Router /bonus-tasks/{id}/complete [post]
func (h *PointsHandler) CompleteTask(c *gin.Context) {
	var req service.CompleteBonusTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.TaskID = c.Param("id")
	if req.UserID == "" {
		if claims := claimsFromContext(c); claims != nil {
			req.UserID = claims.UserID
		}
	}
	result, err := h.points.CompleteBonusTask(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
