package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/afterschool-match-api/internal/service"
	"github.com/noah-isme/afterschool-match-api/pkg/export"
	"github.com/noah-isme/afterschool-match-api/pkg/response"
)

type exportService interface {
	CourseRoster(ctx context.Context, courseID string, format export.Format) (*service.ExportFile, error)
}

// ExportHandler streams course roster documents.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs an ExportHandler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Roster godoc
// @Summary Export a course roster
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param courseId path string true "Course ID"
// @Param format path string true "csv, pdf or xlsx"
// @Success 200 {file} file
// @Router /admin/courses/{courseId}/roster.{format} [get]
func (h *ExportHandler) Roster(c *gin.Context) {
	format := export.Format(strings.ToLower(c.Param("format")))
	file, err := h.service.CourseRoster(c.Request.Context(), c.Param("courseId"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}
