package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/afterschool-match-api/internal/models"
	appErrors "github.com/noah-isme/afterschool-match-api/pkg/errors"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func weightSet(r, i, s int) models.WeightSet {
	return models.WeightSet{Rating: r, Interest: i, Style: s, Version: 1}
}

func TestScorerScenarioWeightedSum(t *testing.T) {
	scorer := NewScorer(5)
	child := models.Child{ID: "c-1", Interests: "Robotics, Coding", LearningStyle: "Visual"}
	teacher := models.Teacher{ID: "t-1", Specialties: "coding,robotics,math", TeachingStyle: "visual ", AvgScore: floatPtr(4.5)}

	score, err := scorer.Score(child, TeacherProfile(teacher), weightSet(60, 30, 10))
	require.NoError(t, err)
	assert.Equal(t, 94, score)
}

func TestScorerRejectsWeightsNotSummingToHundred(t *testing.T) {
	scorer := NewScorer(5)
	child := models.Child{Interests: "art"}
	profile := MatchProfile{Tags: []string{"art"}}

	for _, w := range []models.WeightSet{weightSet(60, 30, 9), weightSet(60, 30, 11), weightSet(120, -10, -10)} {
		_, err := scorer.Score(child, profile, w)
		assert.ErrorIs(t, err, appErrors.ErrInvalidWeights, "weights %+v", w)
	}

	_, err := scorer.Score(child, profile, weightSet(50, 50, 0))
	assert.NoError(t, err)
}

func TestScorerPartialOverlapAndMissingRating(t *testing.T) {
	scorer := NewScorer(5)
	child := models.Child{Interests: "art, music, chess, dance", LearningStyle: "auditory"}
	profile := MatchProfile{Tags: []string{"music", "chess"}, Style: "visual"}

	score, err := scorer.Score(child, profile, weightSet(40, 40, 20))
	require.NoError(t, err)
	assert.Equal(t, 20, score)
}

func TestScorerRatingScaleHundredPassesThrough(t *testing.T) {
	scorer := NewScorer(100)
	assert.InDelta(t, 87.5, scorer.NormalizeRating(floatPtr(87.5)), 0.0001)
	assert.InDelta(t, 100, scorer.NormalizeRating(floatPtr(140)), 0.0001)
	assert.Zero(t, scorer.NormalizeRating(nil))
}

func TestScorerRoundsHalfAwayFromZero(t *testing.T) {
	scorer := NewScorer(5)
	// rating 4.25/5 = 85 * 0.5 = 42.5
	score, err := scorer.Score(models.Child{}, MatchProfile{AvgScore: floatPtr(4.25)}, weightSet(50, 50, 0))
	require.NoError(t, err)
	assert.Equal(t, 43, score)
}

func TestCourseProfileUsesOwnerRatingAndStyle(t *testing.T) {
	owner := &models.Teacher{ID: "t-1", AvgScore: floatPtr(5), TeachingStyle: "hands-on"}
	profile := CourseProfile(models.Course{ID: "c-1", Type: "STEM, Robotics"}, owner)
	assert.Equal(t, []string{"stem", "robotics"}, profile.Tags)
	assert.Equal(t, "hands-on", profile.Style)

	bare := CourseProfile(models.Course{ID: "c-2", Type: "Art"}, nil)
	assert.Nil(t, bare.AvgScore)
	assert.Empty(t, bare.Style)
}

func TestStylesMatch(t *testing.T) {
	assert.True(t, StylesMatch("Visual", " visual"))
	assert.False(t, StylesMatch("visual", "auditory"))
	assert.False(t, StylesMatch("", ""))
}

func TestAgeMatch(t *testing.T) {
	cases := []struct {
		name     string
		age      *int
		ageRange string
		want     int
	}{
		{"lower bound", intPtr(7), "7-10", 100},
		{"upper bound", intPtr(10), "7-10", 100},
		{"one year above", intPtr(11), "7-10", 85},
		{"two years above", intPtr(12), "7-10", 70},
		{"two years below", intPtr(5), "7-10", 70},
		{"beyond tolerance", intPtr(14), "7-10", 0},
		{"missing range", intPtr(8), "", 50},
		{"missing age", nil, "7-10", 50},
		{"malformed range", intPtr(8), "seven-ten", 50},
		{"three parts", intPtr(8), "7-10-12", 50},
		{"inverted range", intPtr(8), "10-7", 50},
		{"padded range", intPtr(9), " 8 - 9 ", 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AgeMatch(tc.age, tc.ageRange))
		})
	}
}
