package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/afterschool-match-api/internal/dto"
	"github.com/noah-isme/afterschool-match-api/internal/models"
	appErrors "github.com/noah-isme/afterschool-match-api/pkg/errors"
	"github.com/noah-isme/afterschool-match-api/pkg/response"
)

type admissionService interface {
	Enroll(ctx context.Context, actor models.Actor, childID string, req dto.EnrollRequest) (*models.Enrollment, error)
	Drop(ctx context.Context, actor models.Actor, childID, courseID string) error
	ListForChild(ctx context.Context, actor models.Actor, childID string, page, size int) ([]models.EnrollmentDetail, *models.Pagination, error)
	ListForCourse(ctx context.Context, courseID string, page, size int) ([]models.EnrollmentDetail, *models.Pagination, error)
}

// EnrollmentHandler exposes enrollment admission endpoints.
type EnrollmentHandler struct {
	service admissionService
}

// NewEnrollmentHandler constructs an EnrollmentHandler.
func NewEnrollmentHandler(service admissionService) *EnrollmentHandler {
	return &EnrollmentHandler{service: service}
}

// Enroll godoc
// @Summary Enroll a child into a course
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param childId path string true "Child ID"
// @Param payload body dto.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /children/{childId}/enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req dto.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid enrollment payload"))
		return
	}
	enrollment, err := h.service.Enroll(c.Request.Context(), actorFromContext(c), c.Param("childId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Drop godoc
// @Summary Drop a child's active enrollment
// @Tags Enrollments
// @Param childId path string true "Child ID"
// @Param courseId path string true "Course ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /children/{childId}/enrollments/{courseId}/drop [post]
func (h *EnrollmentHandler) Drop(c *gin.Context) {
	if err := h.service.Drop(c.Request.Context(), actorFromContext(c), c.Param("childId"), c.Param("courseId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListForChild godoc
// @Summary List a child's enrollments
// @Tags Enrollments
// @Produce json
// @Param childId path string true "Child ID"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /children/{childId}/enrollments [get]
func (h *EnrollmentHandler) ListForChild(c *gin.Context) {
	page, size := pageParams(c)
	items, pagination, err := h.service.ListForChild(c.Request.Context(), actorFromContext(c), c.Param("childId"), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// ListForCourse godoc
// @Summary List a course's enrollments
// @Tags Enrollments
// @Produce json
// @Param courseId path string true "Course ID"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/courses/{courseId}/enrollments [get]
func (h *EnrollmentHandler) ListForCourse(c *gin.Context) {
	page, size := pageParams(c)
	items, pagination, err := h.service.ListForCourse(c.Request.Context(), c.Param("courseId"), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}
