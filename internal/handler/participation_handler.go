package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-engage-api/internal/models"
	"github.com/noah-isme/sma-engage-api/internal/service"
	appErrors "github.com/noah-isme/sma-engage-api/pkg/errors"
	"github.com/noah-isme/sma-engage-api/pkg/response"
)

// ParticipationHandler exposes class-participation endpoints.
type ParticipationHandler struct {
	participation *service.ParticipationService
}

// NewParticipationHandler constructs handler.
func NewParticipationHandler(participation *service.ParticipationService) *ParticipationHandler {
	return &ParticipationHandler{participation: participation}
}

// Record godoc
// @Summary Record a class-participation event for a student
// @Tags Participation
// @Accept json
// @Produce json
// @Param payload body service.RecordParticipationRequest true "Participation payload"
// @Success 200 {object} response.Envelope
// @Router /participation [post]
func (h *ParticipationHandler) Record(c *gin.Context) {
	var req service.RecordParticipationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.RecordedBy = claims.UserID
	}
	rating, err := h.participation.Record(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rating, nil)
}

// List godoc
// @Summary List participation records
// @Tags Participation
// @Produce json
// @Param group_id query string false "Group ID"
// @Param student_id query string false "Student ID"
// @Success 200 {object} response.Envelope
// @Router /participation [get]
func (h *ParticipationHandler) List(c *gin.Context) {
	filter := models.ParticipationFilter{
		GroupID:   c.Query("group_id"),
		StudentID: c.Query("student_id"),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if raw := c.Query("date_from"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.DateFrom = &ts
		}
	}
	if raw := c.Query("date_to"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.DateTo = &ts
		}
	}
	records, err := h.participation.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}
