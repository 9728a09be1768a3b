package dto

// RankedTeacher is one entry of a child's teacher ranking.
type RankedTeacher struct {
	TeacherID   string `json:"teacher_id"`
	TeacherName string `json:"teacher_name"`
	Score       int    `json:"score"`
}

// TeacherRanking is the ordered teacher list for a child.
type TeacherRanking struct {
	ChildID       string          `json:"child_id"`
	WeightVersion int64           `json:"weight_version"`
	Teachers      []RankedTeacher `json:"teachers"`
}

// RankedCourse is one entry of a child's course ranking. Score is the
// weighted compatibility with the course and its teacher, omitted while the
// matching weights are invalid.
type RankedCourse struct {
	CourseID        string `json:"course_id"`
	CourseName      string `json:"course_name"`
	MatchPercentage int    `json:"match_percentage"`
	Score           *int   `json:"score,omitempty"`
	SeatsLeft       int    `json:"seats_left"`
}
