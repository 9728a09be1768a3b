package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/noah-isme/afterschool-match-api/internal/models"
	"github.com/noah-isme/afterschool-match-api/internal/repository"
	"github.com/noah-isme/afterschool-match-api/pkg/database"
)

type childRepoStub struct {
	children map[string]models.Child
}

func (s childRepoStub) FindByID(ctx context.Context, id string) (*models.Child, error) {
	child, ok := s.children[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &child, nil
}

// memoryAdmissionStore serialises atomic units with a mutex. Each unit works
// on a copy of the state that is committed only when fn succeeds and the
// context is still live, mirroring transaction rollback.
type memoryAdmissionStore struct {
	mu          sync.Mutex
	courses     map[string]models.Course
	enrollments []models.Enrollment

	transientFailures int
	units             int
	// hold runs before commit inside the critical section.
	hold func(ctx context.Context)
	// fail replaces the unit when set, standing in for a driver error.
	fail func() error
}

func newMemoryAdmissionStore(courses ...models.Course) *memoryAdmissionStore {
	m := &memoryAdmissionStore{courses: make(map[string]models.Course)}
	for _, c := range courses {
		m.courses[c.ID] = c
	}
	return m
}

func (m *memoryAdmissionStore) WithinAtomicUnit(ctx context.Context, fn func(ctx context.Context, unit repository.AdmissionUnit) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units++
	if m.fail != nil {
		return m.fail()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.transientFailures > 0 {
		m.transientFailures--
		return &pq.Error{Code: database.CodeLockNotAvailable, Message: "could not obtain lock on row"}
	}

	unit := &memoryUnit{courses: make(map[string]models.Course, len(m.courses))}
	for id, c := range m.courses {
		unit.courses[id] = c
	}
	unit.enrollments = append(unit.enrollments, m.enrollments...)

	if err := fn(ctx, unit); err != nil {
		return err
	}
	if m.hold != nil {
		m.hold(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.courses = unit.courses
	m.enrollments = unit.enrollments
	return nil
}

func (m *memoryAdmissionStore) course(id string) models.Course {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.courses[id]
}

func (m *memoryAdmissionStore) activeCount(courseID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.enrollments {
		if e.CourseID == courseID && e.Status == models.EnrollmentStatusEnrolled {
			n++
		}
	}
	return n
}

type memoryUnit struct {
	courses     map[string]models.Course
	enrollments []models.Enrollment
}

func (u *memoryUnit) LockCourse(ctx context.Context, courseID string) (*models.Course, error) {
	c, ok := u.courses[courseID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (u *memoryUnit) FindActiveEnrollment(ctx context.Context, childID, courseID string) (*models.Enrollment, error) {
	for _, e := range u.enrollments {
		if e.ChildID == childID && e.CourseID == courseID && e.Status == models.EnrollmentStatusEnrolled {
			found := e
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (u *memoryUnit) CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	if _, err := u.FindActiveEnrollment(ctx, enrollment.ChildID, enrollment.CourseID); err == nil {
		return &pq.Error{Code: database.CodeUniqueViolation}
	}
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	enrollment.EnrolledAt = time.Now().UTC()
	u.enrollments = append(u.enrollments, *enrollment)
	return nil
}

func (u *memoryUnit) MarkDropped(ctx context.Context, enrollmentID string, at time.Time) error {
	for i := range u.enrollments {
		if u.enrollments[i].ID == enrollmentID && u.enrollments[i].Status == models.EnrollmentStatusEnrolled {
			u.enrollments[i].Status = models.EnrollmentStatusDropped
			u.enrollments[i].DroppedAt = &at
			return nil
		}
	}
	return repository.ErrEnrollmentNotActive
}

func (u *memoryUnit) IncrementOccupancy(ctx context.Context, courseID string) error {
	c := u.courses[courseID]
	if c.CurrentEnrollment >= c.Capacity {
		return repository.ErrOccupancyConflict
	}
	c.CurrentEnrollment++
	u.courses[courseID] = c
	return nil
}

func (u *memoryUnit) DecrementOccupancy(ctx context.Context, courseID string) error {
	c := u.courses[courseID]
	if c.CurrentEnrollment <= 0 {
		return repository.ErrOccupancyConflict
	}
	c.CurrentEnrollment--
	u.courses[courseID] = c
	return nil
}

type enrollmentListStub struct {
	filters []models.EnrollmentFilter
	items   []models.EnrollmentDetail
}

func (s *enrollmentListStub) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	s.filters = append(s.filters, filter)
	return s.items, len(s.items), nil
}

type courseRepoStub struct {
	courses []models.Course
}

func (s courseRepoStub) FindByID(ctx context.Context, id string) (*models.Course, error) {
	for _, c := range s.courses {
		if c.ID == id {
			found := c
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s courseRepoStub) List(ctx context.Context) ([]models.Course, error) {
	return s.courses, nil
}

type teacherRepoStub struct {
	teachers []models.Teacher
}

func (s teacherRepoStub) ListActive(ctx context.Context) ([]models.Teacher, error) {
	return s.teachers, nil
}

func (s teacherRepoStub) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	for _, t := range s.teachers {
		if t.ID == id {
			found := t
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

type matchRecordStoreStub struct {
	mu         sync.Mutex
	records    []models.MatchRecord
	replaced   [][]models.MatchRecord
	replaceErr error
}

func (s *matchRecordStoreStub) ListCurrent(ctx context.Context, childID string, targetType models.MatchTargetType) ([]models.MatchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.MatchRecord
	for _, r := range s.records {
		if r.ChildID == childID && r.TargetType == targetType && r.Current() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *matchRecordStoreStub) History(ctx context.Context, childID string, targetType models.MatchTargetType, targetID string) ([]models.MatchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.MatchRecord
	for _, r := range s.records {
		if r.ChildID == childID && r.TargetType == targetType && r.TargetID == targetID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ComputedAt.After(out[j].ComputedAt) })
	return out, nil
}

func (s *matchRecordStoreStub) Replace(ctx context.Context, records []models.MatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replaceErr != nil {
		return s.replaceErr
	}
	now := time.Now().UTC()
	for _, rec := range records {
		for i := range s.records {
			r := &s.records[i]
			if r.ChildID == rec.ChildID && r.TargetType == rec.TargetType && r.TargetID == rec.TargetID && r.Current() {
				superseded := now
				r.SupersededAt = &superseded
			}
		}
		rec.ID = uuid.NewString()
		rec.ComputedAt = now
		s.records = append(s.records, rec)
	}
	s.replaced = append(s.replaced, records)
	return nil
}

type weightsStub struct {
	set models.WeightSet
	err error
}

func (w weightsStub) CurrentWeights(ctx context.Context) (models.WeightSet, error) {
	return w.set, w.err
}
