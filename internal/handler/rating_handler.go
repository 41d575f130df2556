package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-engage-api/internal/middleware"
	"github.com/noah-isme/sma-engage-api/internal/service"
	appErrors "github.com/noah-isme/sma-engage-api/pkg/errors"
	"github.com/noah-isme/sma-engage-api/pkg/response"
)

// RatingHandler exposes rating and ranking endpoints.
type RatingHandler struct {
	ratings *service.RatingService
}

// NewRatingHandler constructs handler.
func NewRatingHandler(ratings *service.RatingService) *RatingHandler {
	return &RatingHandler{ratings: ratings}
}

type recomputeRequest struct {
	StudentID string `json:"student_id" binding:"required"`
	GroupID   string `json:"group_id" binding:"required"`
}

type snapshotRequest struct {
	Year  int `json:"year" binding:"required"`
	Month int `json:"month" binding:"required"`
}

// Get godoc
// @Summary Get a student's rating in a group
// @Tags Ratings
// @Produce json
// @Param groupId path string true "Group ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{groupId}/ratings/{studentId} [get]
func (h *RatingHandler) Get(c *gin.Context) {
	rating, err := h.ratings.Get(c.Request.Context(), c.Param("studentId"), c.Param("groupId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rating, nil)
}

// Recompute godoc
// @Summary Recompute a student's rating from its fact records
// @Tags Ratings
// @Accept json
// @Produce json
// @Param payload body recomputeRequest true "Recompute payload"
// @Success 200 {object} response.Envelope
// @Router /ratings/recompute [post]
func (h *RatingHandler) Recompute(c *gin.Context) {
	var req recomputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rating, err := h.ratings.Recompute(c.Request.Context(), req.StudentID, req.GroupID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rating, nil)
}

// Resolve godoc
// @Summary Re-rank every rating in a group
// @Tags Ratings
// @Produce json
// @Param groupId path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{groupId}/resolve [post]
func (h *RatingHandler) Resolve(c *gin.Context) {
	ratings, err := h.ratings.ResolveGroup(c.Request.Context(), c.Param("groupId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ratings, nil)
}

// Leaderboard godoc
// @Summary Get the ranked leaderboard for a group
// @Tags Ratings
// @Produce json
// @Param groupId path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{groupId}/leaderboard [get]
func (h *RatingHandler) Leaderboard(c *gin.Context) {
	ratings, fromCache, err := h.ratings.Leaderboard(c.Request.Context(), c.Param("groupId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, fromCache)
	response.JSON(c, http.StatusOK, ratings, nil, middleware.ExtractMeta(c))
}

// Snapshot godoc
// @Summary Close a monthly rating period for a group
// @Tags Ratings
// @Accept json
// @Produce json
// @Param groupId path string true "Group ID"
// @Param payload body snapshotRequest true "Period payload"
// @Success 200 {object} response.Envelope
// @Router /groups/{groupId}/snapshots [post]
func (h *RatingHandler) Snapshot(c *gin.Context) {
	var req snapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.ratings.SnapshotMonth(c.Request.Context(), c.Param("groupId"), req.Year, req.Month); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "snapshotted"}, nil)
}
