package models

import "time"

// ParameterType declares how a parameter value is parsed.
type ParameterType string

const (
	ParameterTypeWeight ParameterType = "weight"
	ParameterTypePrice  ParameterType = "price"
	ParameterTypeLimit  ParameterType = "limit"
	ParameterTypeConfig ParameterType = "config"
)

// Valid reports whether t is a known parameter type.
func (t ParameterType) Valid() bool {
	switch t {
	case ParameterTypeWeight, ParameterTypePrice, ParameterTypeLimit, ParameterTypeConfig:
		return true
	}
	return false
}

// Matching weight parameter names.
const (
	ParamTeacherRatingWeight = "teacher-rating-weight"
	ParamInterestMatchWeight = "interest-match-weight"
	ParamLearningStyleWeight = "learning-style-weight"
)

// WeightParameterNames lists the matching weights in scoring order.
var WeightParameterNames = []string{
	ParamTeacherRatingWeight,
	ParamInterestMatchWeight,
	ParamLearningStyleWeight,
}

// DefaultParameterScope applies to every neighborhood.
const DefaultParameterScope = "global"

// Parameter is a named, versioned configuration value stored as a string.
type Parameter struct {
	Name        string        `db:"name" json:"name"`
	Type        ParameterType `db:"type" json:"type"`
	Value       string        `db:"value" json:"value"`
	Scope       string        `db:"scope" json:"scope"`
	Version     int64         `db:"version" json:"version"`
	EffectiveAt time.Time     `db:"effective_at" json:"effective_at"`
	UpdatedBy   *string       `db:"updated_by" json:"updated_by,omitempty"`
}

// WeightSet is a typed snapshot of the matching weights. Version is the
// weight-version stamped on match records computed with it.
type WeightSet struct {
	Rating   int   `json:"rating"`
	Interest int   `json:"interest"`
	Style    int   `json:"style"`
	Version  int64 `json:"version"`
}

// Sum returns the total of the three weights.
func (w WeightSet) Sum() int {
	return w.Rating + w.Interest + w.Style
}
