package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-engage-api/internal/models"
	"github.com/noah-isme/sma-engage-api/internal/service"
	appErrors "github.com/noah-isme/sma-engage-api/pkg/errors"
	"github.com/noah-isme/sma-engage-api/pkg/response"
)

// RewardHandler exposes the reward catalog and the claim gate.
type RewardHandler struct {
	rewards *service.RewardService
}

// NewRewardHandler constructs handler.
func NewRewardHandler(rewards *service.RewardService) *RewardHandler {
	return &RewardHandler{rewards: rewards}
}

type claimStatusRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Status string `json:"status" binding:"required"`
}

// List godoc
// @Summary List rewards in unlock order
// @Tags Rewards
// @Produce json
// @Param active query bool false "Only active rewards"
// @Success 200 {object} response.Envelope
// @Router /rewards [get]
func (h *RewardHandler) List(c *gin.Context) {
	rewards, err := h.rewards.List(c.Request.Context(), c.Query("active") != "false")
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rewards, nil)
}

// Create godoc
// @Summary Create a reward
// @Tags Rewards
// @Accept json
// @Produce json
// @Param payload body service.CreateRewardRequest true "Reward payload"
// @Success 201 {object} response.Envelope
// @Router /rewards [post]
func (h *RewardHandler) Create(c *gin.Context) {
	var req service.CreateRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	reward, err := h.rewards.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, reward, nil)
}

// Claim godoc
// @Summary Claim a reward for the authenticated student
// @Tags Rewards
// @Produce json
// @Param id path string true "Reward ID"
// @Success 200 {object} response.Envelope
// @Router /rewards/{id}/claim [post]
func (h *RewardHandler) Claim(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	claim, err := h.rewards.Claim(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, claim, nil)
}

// ListClaims godoc
// @Summary List claims for a reward
// @Tags Rewards
// @Produce json
// @Param id path string true "Reward ID"
// @Success 200 {object} response.Envelope
// @Router /rewards/{id}/claims [get]
func (h *RewardHandler) ListClaims(c *gin.Context) {
	claims, err := h.rewards.ListClaims(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, claims, nil)
}

// UpdateClaimStatus godoc
// @Summary Advance a claim through its delivery lifecycle
// @Tags Rewards
// @Accept json
// @Produce json
// @Param id path string true "Reward ID"
// @Param payload body claimStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /rewards/{id}/claims/status [patch]
func (h *RewardHandler) UpdateClaimStatus(c *gin.Context) {
	var req claimStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	next := models.ClaimStatus(req.Status)
	switch next {
	case models.ClaimStatusPending, models.ClaimStatusDelivered, models.ClaimStatusCancelled:
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown claim status"))
		return
	}
	if err := h.rewards.UpdateClaimStatus(c.Request.Context(), c.Param("id"), req.UserID, next); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": next}, nil)
}
