package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/afterschool-match-api/internal/dto"
	"github.com/noah-isme/afterschool-match-api/internal/models"
	"github.com/noah-isme/afterschool-match-api/pkg/response"
)

type rankingService interface {
	RankTeachers(ctx context.Context, actor models.Actor, childID string) (*dto.TeacherRanking, error)
	RankCourses(ctx context.Context, actor models.Actor, childID string) ([]dto.RankedCourse, error)
	MatchHistory(ctx context.Context, actor models.Actor, childID, teacherID string) ([]models.MatchRecord, error)
}

// MatchingHandler exposes teacher and course rankings.
type MatchingHandler struct {
	service rankingService
}

// NewMatchingHandler constructs a MatchingHandler.
func NewMatchingHandler(service rankingService) *MatchingHandler {
	return &MatchingHandler{service: service}
}

// RankedTeachers godoc
// @Summary Rank active teachers for a child
// @Tags Matching
// @Produce json
// @Param childId path string true "Child ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /children/{childId}/ranked-teachers [get]
func (h *MatchingHandler) RankedTeachers(c *gin.Context) {
	ranking, err := h.service.RankTeachers(c.Request.Context(), actorFromContext(c), c.Param("childId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ranking.Teachers, nil, map[string]interface{}{
		"child_id":       ranking.ChildID,
		"weight_version": ranking.WeightVersion,
	})
}

// RankedCourses godoc
// @Summary Rank courses for a child
// @Tags Matching
// @Produce json
// @Param childId path string true "Child ID"
// @Success 200 {object} response.Envelope
// @Router /children/{childId}/ranked-courses [get]
func (h *MatchingHandler) RankedCourses(c *gin.Context) {
	courses, err := h.service.RankCourses(c.Request.Context(), actorFromContext(c), c.Param("childId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// MatchHistory godoc
// @Summary Match record history for a child
// @Tags Matching
// @Produce json
// @Param childId path string true "Child ID"
// @Param teacher_id query string false "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /children/{childId}/match-records [get]
func (h *MatchingHandler) MatchHistory(c *gin.Context) {
	records, err := h.service.MatchHistory(c.Request.Context(), actorFromContext(c), c.Param("childId"), c.Query("teacher_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}
