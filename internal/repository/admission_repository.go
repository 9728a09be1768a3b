package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/afterschool-match-api/internal/models"
	"github.com/noah-isme/afterschool-match-api/pkg/database"
)

var (
	// ErrOccupancyConflict is returned when a guarded occupancy update matched no row.
	ErrOccupancyConflict = errors.New("occupancy guard rejected update")
	// ErrEnrollmentNotActive is returned when dropping an enrollment that is no longer enrolled.
	ErrEnrollmentNotActive = errors.New("enrollment not active")
)

// AdmissionUnit exposes the statements that run inside a single admission
// transaction. Every call shares the same row locks.
type AdmissionUnit interface {
	LockCourse(ctx context.Context, courseID string) (*models.Course, error)
	FindActiveEnrollment(ctx context.Context, childID, courseID string) (*models.Enrollment, error)
	CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) error
	MarkDropped(ctx context.Context, enrollmentID string, at time.Time) error
	IncrementOccupancy(ctx context.Context, courseID string) error
	DecrementOccupancy(ctx context.Context, courseID string) error
}

// AdmissionRepository runs enrollment and drop operations atomically against
// the course occupancy counter.
type AdmissionRepository struct {
	db          *sqlx.DB
	lockTimeout time.Duration
}

// NewAdmissionRepository constructs the repository. A positive lockTimeout is
// applied to each transaction so contended row locks fail fast.
func NewAdmissionRepository(db *sqlx.DB, lockTimeout time.Duration) *AdmissionRepository {
	return &AdmissionRepository{db: db, lockTimeout: lockTimeout}
}

// WithinAtomicUnit runs fn in one read-committed transaction. Any error
// returned by fn rolls back every statement it issued.
func (r *AdmissionRepository) WithinAtomicUnit(ctx context.Context, fn func(ctx context.Context, unit AdmissionUnit) error) error {
	return database.WithTx(ctx, r.db, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, func(tx *sqlx.Tx) error {
		if r.lockTimeout > 0 {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("set lock timeout: %w", err)
			}
		}
		return fn(ctx, &admissionTx{tx: tx})
	})
}

type admissionTx struct {
	tx *sqlx.Tx
}

// LockCourse reads the course row and holds its lock until the unit ends.
func (a *admissionTx) LockCourse(ctx context.Context, courseID string) (*models.Course, error) {
	const query = `SELECT id, teacher_id, neighborhood_id, name, type, age_range, schedule, capacity, current_enrollment, created_at, updated_at
FROM courses WHERE id = $1 FOR UPDATE`
	var course models.Course
	if err := a.tx.GetContext(ctx, &course, query, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("lock course: %w", err)
	}
	return &course, nil
}

// FindActiveEnrollment returns sql.ErrNoRows when the child holds no seat.
func (a *admissionTx) FindActiveEnrollment(ctx context.Context, childID, courseID string) (*models.Enrollment, error) {
	const query = `SELECT id, child_id, course_id, status, enrolled_at, dropped_at
FROM enrollments WHERE child_id = $1 AND course_id = $2 AND status = $3 FOR UPDATE`
	var enrollment models.Enrollment
	if err := a.tx.GetContext(ctx, &enrollment, query, childID, courseID, models.EnrollmentStatusEnrolled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find active enrollment: %w", err)
	}
	return &enrollment, nil
}

func (a *admissionTx) CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusEnrolled
	}
	const query = `INSERT INTO enrollments (id, child_id, course_id, status, enrolled_at, dropped_at)
VALUES (:id, :child_id, :course_id, :status, :enrolled_at, :dropped_at)`
	if _, err := a.tx.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

func (a *admissionTx) MarkDropped(ctx context.Context, enrollmentID string, at time.Time) error {
	const query = `UPDATE enrollments SET status = $2, dropped_at = $3 WHERE id = $1 AND status = $4`
	res, err := a.tx.ExecContext(ctx, query, enrollmentID, models.EnrollmentStatusDropped, at, models.EnrollmentStatusEnrolled)
	if err != nil {
		return fmt.Errorf("mark enrollment dropped: %w", err)
	}
	return expectOneRow(res, ErrEnrollmentNotActive)
}

// IncrementOccupancy takes a seat only while one is free.
func (a *admissionTx) IncrementOccupancy(ctx context.Context, courseID string) error {
	const query = `UPDATE courses SET current_enrollment = current_enrollment + 1, updated_at = $2
WHERE id = $1 AND current_enrollment < capacity`
	res, err := a.tx.ExecContext(ctx, query, courseID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("increment occupancy: %w", err)
	}
	return expectOneRow(res, ErrOccupancyConflict)
}

// DecrementOccupancy releases a seat, never going below zero.
func (a *admissionTx) DecrementOccupancy(ctx context.Context, courseID string) error {
	const query = `UPDATE courses SET current_enrollment = current_enrollment - 1, updated_at = $2
WHERE id = $1 AND current_enrollment > 0`
	res, err := a.tx.ExecContext(ctx, query, courseID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("decrement occupancy: %w", err)
	}
	return expectOneRow(res, ErrOccupancyConflict)
}

func expectOneRow(res sql.Result, conflict error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return conflict
	}
	return nil
}
