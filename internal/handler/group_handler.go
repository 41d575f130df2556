package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-engage-api/internal/models"
	"github.com/noah-isme/sma-engage-api/internal/service"
	appErrors "github.com/noah-isme/sma-engage-api/pkg/errors"
	"github.com/noah-isme/sma-engage-api/pkg/response"
)

// GroupHandler exposes group and membership endpoints.
type GroupHandler struct {
	groups *service.GroupService
}

// NewGroupHandler constructs handler.
func NewGroupHandler(groups *service.GroupService) *GroupHandler {
	return &GroupHandler{groups: groups}
}

type addMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// Create godoc
// @Summary Create a group
// @Tags Groups
// @Accept json
// @Produce json
// @Param payload body service.CreateGroupRequest true "Group payload"
// @Success 201 {object} response.Envelope
// @Router /groups [post]
func (h *GroupHandler) Create(c *gin.Context) {
	var req service.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if req.TeacherID == "" {
		if claims := claimsFromContext(c); claims != nil {
			req.TeacherID = claims.UserID
		}
	}
	group, err := h.groups.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, group, nil)
}

// Get godoc
// @Summary Get a group
// @Tags Groups
// @Produce json
// @Param groupId path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{groupId} [get]
func (h *GroupHandler) Get(c *gin.Context) {
	group, err := h.groups.Get(c.Request.Context(), c.Param("groupId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, group, nil)
}

// List godoc
// @Summary List groups
// @Tags Groups
// @Produce json
// @Param teacher_id query string false "Filter by teacher"
// @Param search query string false "Name search"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /groups [get]
func (h *GroupHandler) List(c *gin.Context) {
	filter := models.GroupFilter{
		TeacherID: c.Query("teacher_id"),
		Search:    c.Query("search"),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if raw, ok := c.GetQuery("active"); ok {
		active := raw == "true"
		filter.Active = &active
	}
	groups, err := h.groups.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, nil)
}

// AddMember godoc
// @Summary Enroll a student into a group
// @Tags Groups
// @Accept json
// @Produce json
// @Param groupId path string true "Group ID"
// @Param payload body addMemberRequest true "Member payload"
// @Success 200 {object} response.Envelope
// @Router /groups/{groupId}/members [post]
func (h *GroupHandler) AddMember(c *gin.Context) {
	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.groups.AddMember(c.Request.Context(), c.Param("groupId"), req.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "enrolled"}, nil)
}

// Members godoc
// @Summary List group members
// @Tags Groups
// @Produce json
// @Param groupId path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{groupId}/members [get]
func (h *GroupHandler) Members(c *gin.Context) {
	members, err := h.groups.Members(c.Request.Context(), c.Param("groupId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, members, nil)
}
