package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/afterschool-match-api/internal/models"
	"github.com/noah-isme/afterschool-match-api/pkg/database"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
	}
}

var courseColumns = []string{"id", "teacher_id", "neighborhood_id", "name", "type", "age_range", "schedule", "capacity", "current_enrollment", "created_at", "updated_at"}

func TestAdmissionRepositoryEnrollCommits(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAdmissionRepository(db, time.Second)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET LOCAL lock_timeout = '1000ms'")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM courses WHERE id = \\$1 FOR UPDATE").
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows(courseColumns).AddRow("course-1", "teacher-1", "n-1", "Robotics", "STEM", "8-12", "Mon 16:00", 10, 3, now, now))
	mock.ExpectQuery("FROM enrollments WHERE child_id = \\$1 AND course_id = \\$2 AND status = \\$3 FOR UPDATE").
		WithArgs("child-1", "course-1", models.EnrollmentStatusEnrolled).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO enrollments").
		WithArgs(sqlmock.AnyArg(), "child-1", "course-1", models.EnrollmentStatusEnrolled, sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE courses SET current_enrollment = current_enrollment \\+ 1").
		WithArgs("course-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.WithinAtomicUnit(context.Background(), func(ctx context.Context, unit AdmissionUnit) error {
		course, err := unit.LockCourse(ctx, "course-1")
		require.NoError(t, err)
		assert.Equal(t, 7, course.SeatsLeft())

		_, err = unit.FindActiveEnrollment(ctx, "child-1", "course-1")
		require.ErrorIs(t, err, sql.ErrNoRows)

		enrollment := &models.Enrollment{ChildID: "child-1", CourseID: "course-1"}
		require.NoError(t, unit.CreateEnrollment(ctx, enrollment))
		assert.NotEmpty(t, enrollment.ID)
		return unit.IncrementOccupancy(ctx, "course-1")
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdmissionRepositoryIncrementGuardRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAdmissionRepository(db, 0)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO enrollments").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE courses SET current_enrollment = current_enrollment \\+ 1").
		WithArgs("course-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.WithinAtomicUnit(context.Background(), func(ctx context.Context, unit AdmissionUnit) error {
		if err := unit.CreateEnrollment(ctx, &models.Enrollment{ChildID: "child-1", CourseID: "course-1"}); err != nil {
			return err
		}
		return unit.IncrementOccupancy(ctx, "course-1")
	})
	assert.ErrorIs(t, err, ErrOccupancyConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdmissionRepositoryUniqueViolationSurfaces(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAdmissionRepository(db, 0)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO enrollments").WillReturnError(&pq.Error{Code: database.CodeUniqueViolation})
	mock.ExpectRollback()

	err := repo.WithinAtomicUnit(context.Background(), func(ctx context.Context, unit AdmissionUnit) error {
		return unit.CreateEnrollment(ctx, &models.Enrollment{ChildID: "child-1", CourseID: "course-1"})
	})
	assert.True(t, database.IsUniqueViolation(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdmissionRepositoryDropDecrements(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAdmissionRepository(db, 0)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE enrollments SET status = \\$2, dropped_at = \\$3 WHERE id = \\$1 AND status = \\$4").
		WithArgs("enr-1", models.EnrollmentStatusDropped, sqlmock.AnyArg(), models.EnrollmentStatusEnrolled).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE courses SET current_enrollment = current_enrollment - 1").
		WithArgs("course-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.WithinAtomicUnit(context.Background(), func(ctx context.Context, unit AdmissionUnit) error {
		if err := unit.MarkDropped(ctx, "enr-1", time.Now()); err != nil {
			return err
		}
		return unit.DecrementOccupancy(ctx, "course-1")
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdmissionRepositoryLockTimeoutIsTransient(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAdmissionRepository(db, 0)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM courses WHERE id = \\$1 FOR UPDATE").
		WillReturnError(&pq.Error{Code: database.CodeLockNotAvailable})
	mock.ExpectRollback()

	err := repo.WithinAtomicUnit(context.Background(), func(ctx context.Context, unit AdmissionUnit) error {
		_, err := unit.LockCourse(ctx, "course-1")
		return err
	})
	require.Error(t, err)
	assert.True(t, database.IsTransient(err))
	assert.False(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}
