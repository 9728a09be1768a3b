package dto

// EnrollRequest asks for a seat in a course for the child in the path.
type EnrollRequest struct {
	CourseID string `json:"course_id" validate:"required"`
}
