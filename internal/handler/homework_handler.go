package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-engage-api/internal/service"
	appErrors "github.com/noah-isme/sma-engage-api/pkg/errors"
	"github.com/noah-isme/sma-engage-api/pkg/response"
)

// HomeworkHandler exposes assignment and submission endpoints.
type HomeworkHandler struct {
	homeworks *service.HomeworkService
}

// NewHomeworkHandler constructs handler.
func NewHomeworkHandler(homeworks *service.HomeworkService) *HomeworkHandler {
	return &HomeworkHandler{homeworks: homeworks}
}

// Create godoc
// @Summary Create a homework assignment
// @Tags Homework
// @Accept json
// @Produce json
// @Param payload body service.CreateHomeworkRequest true "Homework payload"
// @Success 201 {object} response.Envelope
// @Router /homeworks [post]
func (h *HomeworkHandler) Create(c *gin.Context) {
	var req service.CreateHomeworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.TeacherID = claims.UserID
	}
	homework, err := h.homeworks.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, homework, nil)
}

// ListByGroup godoc
// @Summary List homework for a group
// @Tags Homework
// @Produce json
// @Param groupId path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{groupId}/homeworks [get]
func (h *HomeworkHandler) ListByGroup(c *gin.Context) {
	homeworks, err := h.homeworks.ListByGroup(c.Request.Context(), c.Param("groupId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, homeworks, nil)
}

// Submit godoc
// @Summary Submit homework as the authenticated student
// @Tags Homework
// @Accept json
// @Produce json
// @Param id path string true "Homework ID"
// @Param payload body service.SubmitHomeworkRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Router /homeworks/{id}/submissions [post]
func (h *HomeworkHandler) Submit(c *gin.Context) {
	var req service.SubmitHomeworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.HomeworkID = c.Param("id")
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	req.StudentID = claims.UserID
	submission, err := h.homeworks.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, submission, nil)
}

// Grade godoc
// @Summary Grade a submission and refresh the student's rating
// @Tags Homework
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body service.GradeSubmissionRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id}/grade [post]
func (h *HomeworkHandler) Grade(c *gin.Context) {
	var req service.GradeSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.SubmissionID = c.Param("id")
	if claims := claimsFromContext(c); claims != nil {
		req.GradedBy = claims.UserID
	}
	rating, err := h.homeworks.Grade(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rating, nil)
}
