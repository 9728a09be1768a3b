package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/afterschool-match-api/internal/models"
)

const courseSelect = `SELECT id, teacher_id, neighborhood_id, name, type, age_range, schedule, capacity, current_enrollment, created_at, updated_at FROM courses`

// CourseRepository reads courses outside the admission unit.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by identifier.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	var course models.Course
	if err := r.db.GetContext(ctx, &course, courseSelect+` WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// List returns all courses ordered by id.
func (r *CourseRepository) List(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, courseSelect+` ORDER BY id ASC`); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}
