package model

import "time"

type TargetKind string

const (
	TargetKindWebsite TargetKind = "website"
	TargetKindNiche   TargetKind = "niche"
)

func (k TargetKind) Valid() bool {
	return k == TargetKindWebsite || k == TargetKindNiche
}

// Categories lists the signal categories an analysis of this kind collects,
// in the order they appear in prompts and results.
func (k TargetKind) Categories() []Category {
	switch k {
	case TargetKindWebsite:
		return []Category{CategoryTechnical, CategoryKeyword, CategoryCompetition}
	case TargetKindNiche:
		return []Category{CategoryKeyword, CategoryCompetition, CategoryContent}
	}
	return nil
}

// Target is a website or content niche, unique by its normalized Key.
type Target struct {
	ID             int64      `json:"id"`
	Key            string     `json:"target_key"`
	Kind           TargetKind `json:"kind"`
	CreatedAt      time.Time  `json:"created_at"`
	LastAnalyzedAt *time.Time `json:"last_analyzed_at,omitempty"`
}
