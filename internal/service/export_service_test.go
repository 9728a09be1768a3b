package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/afterschool-match-api/internal/models"
	appErrors "github.com/noah-isme/afterschool-match-api/pkg/errors"
	"github.com/noah-isme/afterschool-match-api/pkg/export"
)

type rosterStub struct {
	entries []models.EnrollmentDetail
}

func (r rosterStub) ListRoster(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	return r.entries, nil
}

func rosterFixture() (courseRepoStub, rosterStub) {
	courses := courseRepoStub{courses: []models.Course{{ID: "c-1", Name: "Robotics: Level 1", Capacity: 10, CurrentEnrollment: 2}}}
	at := time.Date(2024, 7, 1, 9, 30, 0, 0, time.UTC)
	roster := rosterStub{entries: []models.EnrollmentDetail{
		{Enrollment: models.Enrollment{ID: "e-1", ChildID: "child-1", EnrolledAt: at}, ChildName: "Ana"},
		{Enrollment: models.Enrollment{ID: "e-2", ChildID: "child-2", EnrolledAt: at}, ChildName: "Bayu"},
	}}
	return courses, roster
}

func TestExportCourseRosterCSV(t *testing.T) {
	courses, roster := rosterFixture()
	svc := NewExportService(courses, roster, nil, nil, true)

	file, err := svc.CourseRoster(context.Background(), "c-1", export.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasPrefix(file.Filename, "roster_robotics-_level_1_"))
	assert.True(t, strings.HasSuffix(file.Filename, ".csv"))
	body := string(file.Payload)
	assert.Contains(t, body, "No,Child,Child ID,Enrollment ID,Enrolled At")
	assert.Contains(t, body, "1,Ana,child-1,e-1,2024-07-01 09:30")
	assert.Contains(t, body, "2,Bayu,child-2,e-2,2024-07-01 09:30")
}

func TestExportCourseRosterBinaryFormats(t *testing.T) {
	courses, roster := rosterFixture()
	svc := NewExportService(courses, roster, export.NewRegistry(), nil, true)

	pdf, err := svc.CourseRoster(context.Background(), "c-1", export.FormatPDF)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf.Payload), "%PDF"))

	xlsx, err := svc.CourseRoster(context.Background(), "c-1", export.FormatXLSX)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(xlsx.Payload), "PK"))
}

func TestExportCourseRosterErrors(t *testing.T) {
	courses, roster := rosterFixture()

	disabled := NewExportService(courses, roster, nil, nil, false)
	_, err := disabled.CourseRoster(context.Background(), "c-1", export.FormatCSV)
	assert.ErrorIs(t, err, appErrors.ErrFeatureDisabled)

	svc := NewExportService(courses, roster, nil, nil, true)
	_, err = svc.CourseRoster(context.Background(), "c-1", export.Format("docx"))
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.CourseRoster(context.Background(), "missing", export.FormatCSV)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
