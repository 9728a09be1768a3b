package dto

// RatingChangedRequest is sent by the evaluation aggregation after it
// recomputes a teacher's average score.
type RatingChangedRequest struct {
	PreviousAvgScore *float64 `json:"previous_avg_score"`
	CurrentAvgScore  *float64 `json:"current_avg_score" validate:"required,min=0"`
}

// RecomputeAck reports whether staleness marking was scheduled.
type RecomputeAck struct {
	Scheduled bool   `json:"scheduled"`
	Reason    string `json:"reason,omitempty"`
}
