package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/afterschool-match-api/internal/dto"
	"github.com/noah-isme/afterschool-match-api/internal/models"
	"github.com/noah-isme/afterschool-match-api/internal/repository"
	"github.com/noah-isme/afterschool-match-api/pkg/database"
	appErrors "github.com/noah-isme/afterschool-match-api/pkg/errors"
)

// Admission operations, used as metric labels.
const (
	OperationEnroll = "enroll"
	OperationDrop   = "drop"
)

type admissionStore interface {
	WithinAtomicUnit(ctx context.Context, fn func(ctx context.Context, unit repository.AdmissionUnit) error) error
}

type enrollmentReader interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// AdmissionConfig bounds retries and time spent per admission attempt.
type AdmissionConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	AttemptTimeout time.Duration
}

// AdmissionService is the only writer of course occupancy. Every enroll and
// drop runs its checks and writes inside one atomic unit.
type AdmissionService struct {
	store       admissionStore
	children    childReader
	courses     courseReader
	enrollments enrollmentReader
	validator   *validator.Validate
	metrics     *MetricsService
	logger      *zap.Logger
	cfg         AdmissionConfig
}

// NewAdmissionService constructs an AdmissionService.
func NewAdmissionService(store admissionStore, children childReader, courses courseReader, enrollments enrollmentReader, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, cfg AdmissionConfig) *AdmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 25 * time.Millisecond
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 3 * time.Second
	}
	return &AdmissionService{
		store:       store,
		children:    children,
		courses:     courses,
		enrollments: enrollments,
		validator:   validate,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
	}
}

// Enroll takes a seat in a course for the child.
func (s *AdmissionService) Enroll(ctx context.Context, actor models.Actor, childID string, req dto.EnrollRequest) (*models.Enrollment, error) {
	start := time.Now()
	enrollment, err := s.enroll(ctx, actor, childID, req)
	s.observe(OperationEnroll, start, err)
	if err != nil {
		return nil, err
	}
	s.logger.Info("child enrolled",
		zap.String("child_id", enrollment.ChildID),
		zap.String("course_id", enrollment.CourseID),
		zap.String("enrollment_id", enrollment.ID),
	)
	return enrollment, nil
}

func (s *AdmissionService) enroll(ctx context.Context, actor models.Actor, childID string, req dto.EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if _, err := loadOwnedChild(ctx, s.children, actor, childID); err != nil {
		return nil, err
	}

	var created *models.Enrollment
	err := s.atomically(ctx, OperationEnroll, func(ctx context.Context, unit repository.AdmissionUnit) error {
		course, err := unit.LockCourse(ctx, req.CourseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return err
		}
		if course.Full() {
			return appErrors.ErrCapacityExceeded
		}
		if _, err := unit.FindActiveEnrollment(ctx, childID, course.ID); err == nil {
			return appErrors.ErrAlreadyEnrolled
		} else if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		enrollment := &models.Enrollment{ChildID: childID, CourseID: course.ID, Status: models.EnrollmentStatusEnrolled}
		if err := unit.CreateEnrollment(ctx, enrollment); err != nil {
			if database.IsUniqueViolation(err) {
				return appErrors.ErrAlreadyEnrolled
			}
			return err
		}
		if err := unit.IncrementOccupancy(ctx, course.ID); err != nil {
			if errors.Is(err, repository.ErrOccupancyConflict) {
				return appErrors.ErrCapacityExceeded
			}
			return err
		}
		created = enrollment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Drop releases the child's seat. A second drop fails with NotEnrolled and
// never decrements twice.
func (s *AdmissionService) Drop(ctx context.Context, actor models.Actor, childID, courseID string) error {
	start := time.Now()
	err := s.drop(ctx, actor, childID, courseID)
	s.observe(OperationDrop, start, err)
	if err != nil {
		return err
	}
	s.logger.Info("child dropped course", zap.String("child_id", childID), zap.String("course_id", courseID))
	return nil
}

func (s *AdmissionService) drop(ctx context.Context, actor models.Actor, childID, courseID string) error {
	if _, err := loadOwnedChild(ctx, s.children, actor, childID); err != nil {
		return err
	}
	return s.atomically(ctx, OperationDrop, func(ctx context.Context, unit repository.AdmissionUnit) error {
		course, err := unit.LockCourse(ctx, courseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return err
		}
		enrollment, err := unit.FindActiveEnrollment(ctx, childID, course.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.ErrNotEnrolled
			}
			return err
		}
		if err := unit.MarkDropped(ctx, enrollment.ID, time.Now().UTC()); err != nil {
			if errors.Is(err, repository.ErrEnrollmentNotActive) {
				return appErrors.ErrNotEnrolled
			}
			return err
		}
		if err := unit.DecrementOccupancy(ctx, course.ID); err != nil {
			if errors.Is(err, repository.ErrOccupancyConflict) {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "course occupancy out of sync")
			}
			return err
		}
		return nil
	})
}

// ListForChild returns a child's enrollments, newest first.
func (s *AdmissionService) ListForChild(ctx context.Context, actor models.Actor, childID string, page, size int) ([]models.EnrollmentDetail, *models.Pagination, error) {
	if _, err := loadOwnedChild(ctx, s.children, actor, childID); err != nil {
		return nil, nil, err
	}
	return s.list(ctx, models.EnrollmentFilter{ChildID: childID, Page: page, PageSize: size})
}

// ListForCourse returns the active roster of a course.
func (s *AdmissionService) ListForCourse(ctx context.Context, courseID string, page, size int) ([]models.EnrollmentDetail, *models.Pagination, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return s.list(ctx, models.EnrollmentFilter{CourseID: courseID, Status: models.EnrollmentStatusEnrolled, Page: page, PageSize: size})
}

func (s *AdmissionService) list(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	filter.Page, filter.PageSize = models.NormalizePage(filter.Page, filter.PageSize)
	items, total, err := s.enrollments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// atomically runs fn inside the atomic unit, retrying the whole unit on
// transient contention with exponential backoff. Exhausted retries and
// expired deadlines surface as Busy; the unit has been rolled back either way.
func (s *AdmissionService) atomically(ctx context.Context, operation string, fn func(ctx context.Context, unit repository.AdmissionUnit) error) error {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = s.cfg.InitialBackoff
	expo.MaxInterval = s.cfg.MaxBackoff
	expo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(s.cfg.MaxAttempts-1)), ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		if attempt > 1 {
			s.metrics.IncAdmissionRetry(operation)
		}
		attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.AttemptTimeout)
		defer cancel()

		err := s.store.WithinAtomicUnit(attemptCtx, fn)
		if err == nil {
			return nil
		}
		if s.retryable(ctx, err) {
			s.logger.Debug("admission attempt contended",
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		return backoff.Permanent(err)
	}, policy)
	if err == nil {
		return nil
	}

	var appErr *appErrors.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case ctx.Err() != nil, database.IsTransient(err), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		s.logger.Warn("admission gave up",
			zap.String("operation", operation),
			zap.Int("attempts", attempt),
			zap.Error(err),
		)
		return appErrors.Wrap(err, appErrors.ErrBusy.Code, appErrors.ErrBusy.Status, appErrors.ErrBusy.Message)
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "admission failed")
	}
}

// retryable reports contention failures and per-attempt timeouts while the
// caller's own context is still live.
func (s *AdmissionService) retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return database.IsTransient(err) || errors.Is(err, context.DeadlineExceeded)
}

func (s *AdmissionService) observe(operation string, start time.Time, err error) {
	s.metrics.ObserveAdmission(operation, admissionOutcome(err), time.Since(start))
}

func admissionOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, appErrors.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, appErrors.ErrCapacityExceeded):
		return OutcomeCapacityExceeded
	case errors.Is(err, appErrors.ErrAlreadyEnrolled):
		return OutcomeAlreadyEnrolled
	case errors.Is(err, appErrors.ErrNotEnrolled):
		return OutcomeNotEnrolled
	case errors.Is(err, appErrors.ErrBusy):
		return OutcomeBusy
	}
	return OutcomeError
}
