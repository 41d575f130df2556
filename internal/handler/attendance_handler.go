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

// AttendanceHandler exposes attendance-sheet endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs handler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Record godoc
// @Summary Record an attendance sheet for a class session
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.RecordAttendanceRequest true "Sheet payload"
// @Success 200 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Record(c *gin.Context) {
	var req service.RecordAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.RecordedBy = claims.UserID
	}
	if err := h.attendance.RecordSession(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "recorded"}, nil)
}

// List godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Param group_id query string false "Group ID"
// @Param student_id query string false "Student ID"
// @Param date_from query string false "Start date (RFC 3339)"
// @Param date_to query string false "End date (RFC 3339)"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	filter := models.AttendanceFilter{
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
	if raw := c.Query("status"); raw != "" {
		status := models.AttendanceStatus(raw)
		if !status.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown attendance status"))
			return
		}
		filter.Status = &status
	}
	records, err := h.attendance.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}
