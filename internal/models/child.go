package models

import (
	"strings"
	"time"
)

// Child is a youth profile owned by a family.
type Child struct {
	ID            string    `db:"id" json:"id"`
	FamilyID      string    `db:"family_id" json:"family_id"`
	FullName      string    `db:"full_name" json:"full_name"`
	Age           *int      `db:"age" json:"age,omitempty"`
	Interests     string    `db:"interests" json:"interests"`
	LearningStyle string    `db:"learning_style" json:"learning_style"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// InterestTags returns the normalised interest tag set.
func (c Child) InterestTags() []string {
	return SplitTags(c.Interests)
}

// SplitTags parses a comma-separated tag list into unique lower-case tags,
// preserving first-seen order.
func SplitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	seen := make(map[string]struct{}, len(parts))
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		tag := strings.ToLower(strings.TrimSpace(part))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}
