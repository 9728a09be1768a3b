package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/afterschool-match-api/internal/dto"
	appErrors "github.com/noah-isme/afterschool-match-api/pkg/errors"
	"github.com/noah-isme/afterschool-match-api/pkg/response"
)

type recomputeService interface {
	TeacherRatingChanged(ctx context.Context, teacherID string, req dto.RatingChangedRequest) (*dto.RecomputeAck, error)
}

// RecomputeHandler receives rating change notifications from the evaluation
// aggregation.
type RecomputeHandler struct {
	service recomputeService
}

// NewRecomputeHandler constructs a RecomputeHandler.
func NewRecomputeHandler(service recomputeService) *RecomputeHandler {
	return &RecomputeHandler{service: service}
}

// RatingChanged godoc
// @Summary Notify a teacher rating change
// @Tags Internal
// @Accept json
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Param payload body dto.RatingChangedRequest true "Rating change"
// @Success 202 {object} response.Envelope
// @Router /internal/teachers/{teacherId}/rating-changed [post]
func (h *RecomputeHandler) RatingChanged(c *gin.Context) {
	var req dto.RatingChangedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rating payload"))
		return
	}
	ack, err := h.service.TeacherRatingChanged(c.Request.Context(), c.Param("teacherId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, ack)
}
