package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/afterschool-match-api/internal/dto"
	"github.com/noah-isme/afterschool-match-api/internal/models"
	"github.com/noah-isme/afterschool-match-api/internal/service"
	appErrors "github.com/noah-isme/afterschool-match-api/pkg/errors"
	"github.com/noah-isme/afterschool-match-api/pkg/export"
)

var testTokens = map[string]*models.JWTClaims{
	"parent": {UserID: "u-1", FamilyID: "fam-1", Role: models.RoleParent},
	"admin":  {UserID: "admin-1", Role: models.RoleAdmin},
	"system": {UserID: "aggregator", Role: models.RoleSystem},
}

type tokenStub struct{}

func (tokenStub) ValidateToken(token string) (*models.JWTClaims, error) {
	claims, ok := testTokens[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return claims, nil
}

type admissionServiceMock struct {
	enrollErr error
	dropErr   error
	lastActor models.Actor
	lastChild string
	lastReq   dto.EnrollRequest
	lastPage  [2]int
}

func (m *admissionServiceMock) Enroll(ctx context.Context, actor models.Actor, childID string, req dto.EnrollRequest) (*models.Enrollment, error) {
	m.lastActor, m.lastChild, m.lastReq = actor, childID, req
	if m.enrollErr != nil {
		return nil, m.enrollErr
	}
	return &models.Enrollment{ID: "e-1", ChildID: childID, CourseID: req.CourseID, Status: models.EnrollmentStatusEnrolled}, nil
}

func (m *admissionServiceMock) Drop(ctx context.Context, actor models.Actor, childID, courseID string) error {
	m.lastActor, m.lastChild = actor, childID
	return m.dropErr
}

func (m *admissionServiceMock) ListForChild(ctx context.Context, actor models.Actor, childID string, page, size int) ([]models.EnrollmentDetail, *models.Pagination, error) {
	m.lastPage = [2]int{page, size}
	return []models.EnrollmentDetail{}, &models.Pagination{Page: page, PageSize: size}, nil
}

func (m *admissionServiceMock) ListForCourse(ctx context.Context, courseID string, page, size int) ([]models.EnrollmentDetail, *models.Pagination, error) {
	m.lastPage = [2]int{page, size}
	return []models.EnrollmentDetail{}, &models.Pagination{Page: page, PageSize: size, TotalCount: 0}, nil
}

type rankingServiceMock struct {
	err           error
	lastTeacherID string
}

func (m *rankingServiceMock) RankTeachers(ctx context.Context, actor models.Actor, childID string) (*dto.TeacherRanking, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &dto.TeacherRanking{
		ChildID:       childID,
		WeightVersion: 12,
		Teachers:      []dto.RankedTeacher{{TeacherID: "t-2", Score: 91}, {TeacherID: "t-1", Score: 80}},
	}, nil
}

func (m *rankingServiceMock) RankCourses(ctx context.Context, actor models.Actor, childID string) ([]dto.RankedCourse, error) {
	return []dto.RankedCourse{{CourseID: "c-1", MatchPercentage: 88}}, m.err
}

func (m *rankingServiceMock) MatchHistory(ctx context.Context, actor models.Actor, childID, teacherID string) ([]models.MatchRecord, error) {
	m.lastTeacherID = teacherID
	return []models.MatchRecord{}, m.err
}

type parameterServiceMock struct {
	weightsErr error
}

func (m *parameterServiceMock) List(ctx context.Context) ([]dto.ParameterItem, error) {
	return []dto.ParameterItem{{Name: models.ParamTeacherRatingWeight, Type: "weight", Value: "60"}}, nil
}

func (m *parameterServiceMock) Get(ctx context.Context, name string) (*dto.ParameterItem, error) {
	return &dto.ParameterItem{Name: name}, nil
}

func (m *parameterServiceMock) Set(ctx context.Context, actor models.Actor, name string, req dto.UpdateParameterRequest) (*dto.ParameterItem, error) {
	return &dto.ParameterItem{Name: name, Type: req.Type, Value: req.Value, Version: 3}, nil
}

func (m *parameterServiceMock) SetWeights(ctx context.Context, actor models.Actor, req dto.UpdateWeightsRequest) (models.WeightSet, error) {
	if m.weightsErr != nil {
		return models.WeightSet{}, m.weightsErr
	}
	return models.WeightSet{Rating: *req.Rating, Interest: *req.Interest, Style: *req.Style, Version: 9}, nil
}

func (m *parameterServiceMock) CurrentWeights(ctx context.Context) (models.WeightSet, error) {
	return models.WeightSet{Rating: 60, Interest: 30, Style: 10, Version: 9}, nil
}

type recomputeServiceMock struct {
	lastTeacher string
}

func (m *recomputeServiceMock) TeacherRatingChanged(ctx context.Context, teacherID string, req dto.RatingChangedRequest) (*dto.RecomputeAck, error) {
	m.lastTeacher = teacherID
	return &dto.RecomputeAck{Scheduled: true}, nil
}

type exportServiceMock struct {
	lastFormat export.Format
}

func (m *exportServiceMock) CourseRoster(ctx context.Context, courseID string, format export.Format) (*service.ExportFile, error) {
	m.lastFormat = format
	if format != export.FormatCSV {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	return &service.ExportFile{Filename: "roster_robotics_20240701.csv", ContentType: "text/csv", Payload: []byte("No,Child\n")}, nil
}

type testServer struct {
	router     *gin.Engine
	admission  *admissionServiceMock
	ranking    *rankingServiceMock
	parameters *parameterServiceMock
	recompute  *recomputeServiceMock
	exports    *exportServiceMock
}

func newTestServer(checks map[string]ReadinessCheck) *testServer {
	gin.SetMode(gin.TestMode)
	s := &testServer{
		router:     gin.New(),
		admission:  &admissionServiceMock{},
		ranking:    &rankingServiceMock{},
		parameters: &parameterServiceMock{},
		recompute:  &recomputeServiceMock{},
		exports:    &exportServiceMock{},
	}
	Register(s.router, Handlers{
		Enrollment: NewEnrollmentHandler(s.admission),
		Matching:   NewMatchingHandler(s.ranking),
		Parameter:  NewParameterHandler(s.parameters),
		Recompute:  NewRecomputeHandler(s.recompute),
		Export:     NewExportHandler(s.exports),
		Metrics:    NewMetricsHandler(service.NewMetricsService(), checks),
	}, RouteConfig{Prefix: "/api/v1", Tokens: tokenStub{}})
	return s
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, _ := json.Marshal(v)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestEnrollCreated(t *testing.T) {
	s := newTestServer(nil)

	w := s.do(http.MethodPost, "/api/v1/children/child-1/enrollments", "parent", dto.EnrollRequest{CourseID: "c-1"})
	require.Equal(t, http.StatusCreated, w.Code)

	var enrollment models.Enrollment
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &enrollment))
	assert.Equal(t, "c-1", enrollment.CourseID)
	assert.Equal(t, "child-1", s.admission.lastChild)
	assert.Equal(t, models.Actor{UserID: "u-1", FamilyID: "fam-1", Role: models.RoleParent}, s.admission.lastActor)
}

func TestEnrollErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"capacity", appErrors.ErrCapacityExceeded, http.StatusConflict, "CAPACITY_EXCEEDED"},
		{"duplicate", appErrors.ErrAlreadyEnrolled, http.StatusConflict, "ALREADY_ENROLLED"},
		{"busy", appErrors.ErrBusy, http.StatusServiceUnavailable, "BUSY"},
		{"not found", appErrors.Clone(appErrors.ErrNotFound, "child not found"), http.StatusNotFound, "NOT_FOUND"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(nil)
			s.admission.enrollErr = tc.err

			w := s.do(http.MethodPost, "/api/v1/children/child-1/enrollments", "parent", dto.EnrollRequest{CourseID: "c-1"})
			require.Equal(t, tc.status, w.Code)
			env := decode(t, w)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
		})
	}
}

func TestEnrollInvalidBody(t *testing.T) {
	s := newTestServer(nil)
	w := s.do(http.MethodPost, "/api/v1/children/child-1/enrollments", "parent", "invalid")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDropAnswersNoContent(t *testing.T) {
	s := newTestServer(nil)
	w := s.do(http.MethodPost, "/api/v1/children/child-1/enrollments/c-1/drop", "parent", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	s.admission.dropErr = appErrors.ErrNotEnrolled
	w = s.do(http.MethodPost, "/api/v1/children/child-1/enrollments/c-1/drop", "parent", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListEnrollmentsPagination(t *testing.T) {
	s := newTestServer(nil)

	w := s.do(http.MethodGet, "/api/v1/children/child-1/enrollments?page=2&page_size=5", "parent", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [2]int{2, 5}, s.admission.lastPage)

	w = s.do(http.MethodGet, "/api/v1/admin/courses/c-1/enrollments?page=0&page_size=500", "admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [2]int{1, 20}, s.admission.lastPage)
	assert.Equal(t, 20, decode(t, w).Pagination.PageSize)
}

func TestRankedTeachersCarriesWeightVersion(t *testing.T) {
	s := newTestServer(nil)

	w := s.do(http.MethodGet, "/api/v1/children/child-1/ranked-teachers", "parent", nil)
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)

	var teachers []dto.RankedTeacher
	require.NoError(t, json.Unmarshal(env.Data, &teachers))
	require.Len(t, teachers, 2)
	assert.Equal(t, "t-2", teachers[0].TeacherID)
	assert.EqualValues(t, 12, env.Meta["weight_version"])

	s.ranking.err = appErrors.ErrInvalidWeights
	w = s.do(http.MethodGet, "/api/v1/children/child-1/ranked-teachers", "parent", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestMatchHistoryTeacherFilter(t *testing.T) {
	s := newTestServer(nil)
	w := s.do(http.MethodGet, "/api/v1/children/child-1/match-records?teacher_id=t-9", "parent", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "t-9", s.ranking.lastTeacherID)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	s := newTestServer(nil)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/admin/parameters", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/v1/admin/parameters", "parent", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/admin/parameters", "admin", nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/v1/children/child-1/ranked-teachers", "system", nil).Code)
}

func TestParameterRoutes(t *testing.T) {
	s := newTestServer(nil)

	w := s.do(http.MethodGet, "/api/v1/admin/parameters/weights", "admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var set models.WeightSet
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &set))
	assert.Equal(t, 100, set.Sum())

	w = s.do(http.MethodPut, "/api/v1/admin/parameters/weights", "admin", map[string]int{"rating": 50, "interest": 40, "style": 10})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &set))
	assert.Equal(t, models.WeightSet{Rating: 50, Interest: 40, Style: 10, Version: 9}, set)

	s.parameters.weightsErr = appErrors.ErrInvalidWeights
	w = s.do(http.MethodPut, "/api/v1/admin/parameters/weights", "admin", map[string]int{"rating": 50, "interest": 40, "style": 11})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "INVALID_WEIGHTS", decode(t, w).Error.Code)

	w = s.do(http.MethodPut, "/api/v1/admin/parameters/max-children", "admin", dto.UpdateParameterRequest{Type: "limit", Value: "4"})
	require.Equal(t, http.StatusOK, w.Code)
	var item dto.ParameterItem
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &item))
	assert.Equal(t, "max-children", item.Name)
}

func TestRatingChangedAccepted(t *testing.T) {
	s := newTestServer(nil)
	body := map[string]float64{"previous_avg_score": 4.5, "current_avg_score": 3.2}

	w := s.do(http.MethodPost, "/api/v1/internal/teachers/t-1/rating-changed", "system", body)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "t-1", s.recompute.lastTeacher)

	w = s.do(http.MethodPost, "/api/v1/internal/teachers/t-1/rating-changed", "parent", body)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRosterExportStreamsAttachment(t *testing.T) {
	s := newTestServer(nil)

	w := s.do(http.MethodGet, "/api/v1/admin/courses/c-1/roster.CSV", "admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.FormatCSV, s.exports.lastFormat)
	assert.Equal(t, `attachment; filename="roster_robotics_20240701.csv"`, w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Equal(t, "No,Child\n", w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/admin/courses/c-1/roster.docx", "admin", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndReadiness(t *testing.T) {
	s := newTestServer(map[string]ReadinessCheck{
		"postgres": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
	})

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", "", nil).Code)

	w := s.do(http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "unavailable", body.Status)
	assert.Equal(t, "ok", body.Checks["postgres"])
	assert.Equal(t, "connection refused", body.Checks["redis"])

	ready := newTestServer(map[string]ReadinessCheck{"postgres": func(ctx context.Context) error { return nil }})
	assert.Equal(t, http.StatusOK, ready.do(http.MethodGet, "/ready", "", nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(nil)
	s.do(http.MethodGet, "/health", "", nil)

	w := s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cache_hit_ratio")
}
