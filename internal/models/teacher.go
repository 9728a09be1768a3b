package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Teacher represents an instructor profile. AvgScore is maintained by the
// evaluation aggregation and only read here.
type Teacher struct {
	ID             string         `db:"id" json:"id"`
	FullName       string         `db:"full_name" json:"full_name"`
	Specialties    string         `db:"specialties" json:"specialties"`
	TeachingStyle  string         `db:"teaching_style" json:"teaching_style"`
	AvailableTimes types.JSONText `db:"available_times" json:"available_times,omitempty"`
	AvgScore       *float64       `db:"avg_score" json:"avg_score,omitempty"`
	Active         bool           `db:"active" json:"active"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}
