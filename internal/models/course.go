package models

import "time"

// Course is a community course with a bounded number of seats.
type Course struct {
	ID                string    `db:"id" json:"id"`
	TeacherID         string    `db:"teacher_id" json:"teacher_id"`
	NeighborhoodID    string    `db:"neighborhood_id" json:"neighborhood_id"`
	Name              string    `db:"name" json:"name"`
	Type              string    `db:"type" json:"type"`
	AgeRange          string    `db:"age_range" json:"age_range"`
	Schedule          string    `db:"schedule" json:"schedule"`
	Capacity          int       `db:"capacity" json:"capacity"`
	CurrentEnrollment int       `db:"current_enrollment" json:"current_enrollment"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// SeatsLeft returns the number of free seats.
func (c Course) SeatsLeft() int {
	if left := c.Capacity - c.CurrentEnrollment; left > 0 {
		return left
	}
	return 0
}

// Full reports whether no seat is left.
func (c Course) Full() bool {
	return c.CurrentEnrollment >= c.Capacity
}
