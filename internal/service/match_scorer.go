package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/noah-isme/afterschool-match-api/internal/models"
	appErrors "github.com/noah-isme/afterschool-match-api/pkg/errors"
)

// Age match percentages.
const (
	AgeMatchFull         = 100
	AgeMatchUnknown      = 50
	ageMatchPenaltyPerYr = 15
	ageMatchToleranceYrs = 2
)

// MatchProfile is the side of a match a child is scored against.
type MatchProfile struct {
	ID       string
	AvgScore *float64
	Tags     []string
	Style    string
}

// TeacherProfile builds a profile from a teacher's specialties.
func TeacherProfile(t models.Teacher) MatchProfile {
	return MatchProfile{
		ID:       t.ID,
		AvgScore: t.AvgScore,
		Tags:     models.SplitTags(t.Specialties),
		Style:    t.TeachingStyle,
	}
}

// CourseProfile builds a profile from a course type, taking rating and style
// from the owning teacher when known.
func CourseProfile(c models.Course, owner *models.Teacher) MatchProfile {
	profile := MatchProfile{ID: c.ID, Tags: models.SplitTags(c.Type)}
	if owner != nil {
		profile.AvgScore = owner.AvgScore
		profile.Style = owner.TeachingStyle
	}
	return profile
}

// ValidateWeights rejects weight sets that do not sum to exactly 100 or carry
// a weight outside [0, 100]. Weights are never normalised.
func ValidateWeights(w models.WeightSet) error {
	for _, v := range []int{w.Rating, w.Interest, w.Style} {
		if v < 0 || v > 100 {
			return appErrors.Clone(appErrors.ErrInvalidWeights, fmt.Sprintf("weight %d outside 0-100", v))
		}
	}
	if sum := w.Sum(); sum != 100 {
		return appErrors.Clone(appErrors.ErrInvalidWeights, fmt.Sprintf("matching weights sum to %d, expected 100", sum))
	}
	return nil
}

// Scorer computes child compatibility scores.
type Scorer struct {
	ratingScale float64
}

// NewScorer returns a scorer normalising ratings recorded on [0, ratingScale].
func NewScorer(ratingScale float64) Scorer {
	if ratingScale <= 0 {
		ratingScale = 5
	}
	return Scorer{ratingScale: ratingScale}
}

// NormalizeRating maps an average score to [0, 100]. A missing score is 0.
func (s Scorer) NormalizeRating(avg *float64) float64 {
	if avg == nil {
		return 0
	}
	return clampFloat(*avg/s.ratingScale*100, 0, 100)
}

// Score returns the weighted compatibility of child and profile in [0, 100].
func (s Scorer) Score(child models.Child, profile MatchProfile, weights models.WeightSet) (int, error) {
	if err := ValidateWeights(weights); err != nil {
		return 0, err
	}

	rating := s.NormalizeRating(profile.AvgScore) * float64(weights.Rating) / 100
	interest := InterestOverlap(child.InterestTags(), profile.Tags) * 100 * float64(weights.Interest) / 100
	var style float64
	if StylesMatch(child.LearningStyle, profile.Style) {
		style = float64(weights.Style)
	}

	total := math.Round(rating + interest + style)
	return int(clampFloat(total, 0, 100)), nil
}

// InterestOverlap returns |child ∩ target| / max(1, |child|).
func InterestOverlap(childTags, targetTags []string) float64 {
	if len(childTags) == 0 || len(targetTags) == 0 {
		return 0
	}
	targets := make(map[string]struct{}, len(targetTags))
	for _, tag := range targetTags {
		targets[tag] = struct{}{}
	}
	shared := 0
	for _, tag := range childTags {
		if _, ok := targets[tag]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(childTags))
}

// StylesMatch is an exact, case-insensitive comparison. Empty styles never match.
func StylesMatch(childStyle, teachingStyle string) bool {
	a := strings.TrimSpace(childStyle)
	b := strings.TrimSpace(teachingStyle)
	return a != "" && b != "" && strings.EqualFold(a, b)
}

// AgeMatch rates how well a child's age fits a "min-max" course range.
// Missing or malformed data yields AgeMatchUnknown instead of an error.
func AgeMatch(age *int, ageRange string) int {
	if age == nil {
		return AgeMatchUnknown
	}
	minAge, maxAge, ok := ParseAgeRange(ageRange)
	if !ok {
		return AgeMatchUnknown
	}

	var distance int
	switch {
	case *age < minAge:
		distance = minAge - *age
	case *age > maxAge:
		distance = *age - maxAge
	default:
		return AgeMatchFull
	}
	if distance > ageMatchToleranceYrs {
		return 0
	}
	return AgeMatchFull - ageMatchPenaltyPerYr*distance
}

// ParseAgeRange parses exactly two dash-separated integers with min <= max.
func ParseAgeRange(raw string) (int, int, bool) {
	parts := strings.Split(strings.TrimSpace(raw), "-")
	if len(parts) != 2 {
		return 0, 0, false
	}
	minAge, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	maxAge, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	if minAge > maxAge {
		return 0, 0, false
	}
	return minAge, maxAge, true
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
