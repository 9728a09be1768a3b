package models

import "time"

// MatchTargetType names what a child was scored against.
type MatchTargetType string

const (
	MatchTargetTeacher MatchTargetType = "TEACHER"
	MatchTargetCourse  MatchTargetType = "COURSE"
)

// MatchRecord is an immutable scoring result. A newer record supersedes the
// previous current one instead of editing it.
type MatchRecord struct {
	ID            string          `db:"id" json:"id"`
	ChildID       string          `db:"child_id" json:"child_id"`
	TargetType    MatchTargetType `db:"target_type" json:"target_type"`
	TargetID      string          `db:"target_id" json:"target_id"`
	Score         int             `db:"score" json:"score"`
	WeightVersion int64           `db:"weight_version" json:"weight_version"`
	ComputedAt    time.Time       `db:"computed_at" json:"computed_at"`
	Stale         bool            `db:"stale" json:"stale"`
	SupersededAt  *time.Time      `db:"superseded_at" json:"superseded_at,omitempty"`
}

// Current reports whether the record has not been superseded.
func (r MatchRecord) Current() bool {
	return r.SupersededAt == nil
}

// NeedsRefresh reports whether the record no longer reflects score under version.
func (r MatchRecord) NeedsRefresh(score int, version int64) bool {
	return r.Stale || r.WeightVersion != version || r.Score != score
}
