package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-engage-api/internal/models"
	"github.com/noah-isme/sma-engage-api/internal/service"
	appErrors "github.com/noah-isme/sma-engage-api/pkg/errors"
	"github.com/noah-isme/sma-engage-api/pkg/response"
)

// CompetitionHandler exposes competition lifecycle endpoints.
type CompetitionHandler struct {
	competitions *service.CompetitionService
}

// NewCompetitionHandler constructs handler.
func NewCompetitionHandler(competitions *service.CompetitionService) *CompetitionHandler {
	return &CompetitionHandler{competitions: competitions}
}

type submissionScoreRequest struct {
	UserID string  `json:"user_id"`
	Score  float64 `json:"score" binding:"min=0"`
}

type competitionStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type assignWinnersRequest struct {
	Winners []models.WinnerAssignment `json:"winners" binding:"required,min=1"`
}

func parseCompetitionStatus(raw string) (models.CompetitionStatus, bool) {
	status := models.CompetitionStatus(raw)
	switch status {
	case models.CompetitionStatusUpcoming, models.CompetitionStatusActive, models.CompetitionStatusFinished:
		return status, true
	default:
		return "", false
	}
}

// Create godoc
// @Summary Create a competition
// @Tags Competitions
// @Accept json
// @Produce json
// @Param payload body models.Competition true "Competition payload"
// @Success 201 {object} response.Envelope
// @Router /competitions [post]
func (h *CompetitionHandler) Create(c *gin.Context) {
	var competition models.Competition
	if err := c.ShouldBindJSON(&competition); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		competition.CreatedBy = claims.UserID
	}
	created, err := h.competitions.Create(c.Request.Context(), &competition)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, created, nil)
}

// Get godoc
// @Summary Get a competition with participants and winners
// @Tags Competitions
// @Produce json
// @Param id path string true "Competition ID"
// @Success 200 {object} response.Envelope
// @Router /competitions/{id} [get]
func (h *CompetitionHandler) Get(c *gin.Context) {
	competition, participants, winners, err := h.competitions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"competition":  competition,
		"participants": participants,
		"winners":      winners,
	}, nil)
}

// List godoc
// @Summary List competitions
// @Tags Competitions
// @Produce json
// @Param status query string false "UPCOMING, ACTIVE or FINISHED"
// @Success 200 {object} response.Envelope
// @Router /competitions [get]
func (h *CompetitionHandler) List(c *gin.Context) {
	var status *models.CompetitionStatus
	if raw := c.Query("status"); raw != "" {
		parsed, ok := parseCompetitionStatus(raw)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown competition status"))
			return
		}
		status = &parsed
	}
	competitions, err := h.competitions.List(c.Request.Context(), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, competitions, nil)
}

// Register godoc
// @Summary Register the authenticated student for a competition
// @Tags Competitions
// @Produce json
// @Param id path string true "Competition ID"
// @Success 200 {object} response.Envelope
// @Router /competitions/{id}/register [post]
func (h *CompetitionHandler) Register(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.competitions.Register(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "registered"}, nil)
}

// RecordSubmission godoc
// @Summary Record a scored submission for a participant
// @Tags Competitions
// @Accept json
// @Produce json
// @Param id path string true "Competition ID"
// @Param payload body submissionScoreRequest true "Submission payload"
// @Success 200 {object} response.Envelope
// @Router /competitions/{id}/submissions [post]
func (h *CompetitionHandler) RecordSubmission(c *gin.Context) {
	var req submissionScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if req.UserID == "" {
		if claims := claimsFromContext(c); claims != nil {
			req.UserID = claims.UserID
		}
	}
	if err := h.competitions.RecordSubmission(c.Request.Context(), c.Param("id"), req.UserID, req.Score); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "submitted"}, nil)
}

// UpdateStatus godoc
// @Summary Move a competition through its lifecycle
// @Tags Competitions
// @Accept json
// @Produce json
// @Param id path string true "Competition ID"
// @Param payload body competitionStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /competitions/{id}/status [patch]
func (h *CompetitionHandler) UpdateStatus(c *gin.Context) {
	var req competitionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	status, ok := parseCompetitionStatus(req.Status)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown competition status"))
		return
	}
	if err := h.competitions.UpdateStatus(c.Request.Context(), c.Param("id"), status); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": status}, nil)
}

// AssignWinners godoc
// @Summary Assign winners, credit prize points and close the competition
// @Tags Competitions
// @Accept json
// @Produce json
// @Param id path string true "Competition ID"
// @Param payload body assignWinnersRequest true "Winners payload"
// @Success 200 {object} response.Envelope
// @Router /competitions/{id}/winners [post]
func (h *CompetitionHandler) AssignWinners(c *gin.Context) {
	var req assignWinnersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	winners, err := h.competitions.AssignWinners(c.Request.Context(), c.Param("id"), req.Winners)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, winners, nil)
}
