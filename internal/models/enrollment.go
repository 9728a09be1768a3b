package models

import "time"

// EnrollmentStatus represents the lifecycle of a course selection.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusEnrolled EnrollmentStatus = "enrolled"
	EnrollmentStatusDropped  EnrollmentStatus = "dropped"
)

// Enrollment links one child to one course.
type Enrollment struct {
	ID         string           `db:"id" json:"id"`
	ChildID    string           `db:"child_id" json:"child_id"`
	CourseID   string           `db:"course_id" json:"course_id"`
	Status     EnrollmentStatus `db:"status" json:"status"`
	EnrolledAt time.Time        `db:"enrolled_at" json:"enrolled_at"`
	DroppedAt  *time.Time       `db:"dropped_at" json:"dropped_at,omitempty"`
}

// EnrollmentDetail enriches Enrollment with child and course names.
type EnrollmentDetail struct {
	Enrollment
	ChildName  string `db:"child_name" json:"child_name"`
	CourseName string `db:"course_name" json:"course_name"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	ChildID  string
	CourseID string
	Status   EnrollmentStatus
	Page     int
	PageSize int
}
