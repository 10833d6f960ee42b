package model

import (
	"encoding/json"
	"fmt"
)

// RecommendationCategory is one of the five fixed output categories, or the
// reserved error marker.
type RecommendationCategory string

const (
	RecTechnical RecommendationCategory = "technical"
	RecContent   RecommendationCategory = "content"
	RecKeywords  RecommendationCategory = "keywords"
	RecBacklinks RecommendationCategory = "backlinks"
	RecUX        RecommendationCategory = "ux"

	// RecError holds the failure reason when synthesis did not produce a set.
	RecError RecommendationCategory = "error"
)

// RecommendationCategories is the fixed set, in output order.
var RecommendationCategories = []RecommendationCategory{
	RecTechnical,
	RecContent,
	RecKeywords,
	RecBacklinks,
	RecUX,
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

type Recommendation struct {
	Text     string   `json:"text"`
	Priority Priority `json:"priority,omitempty"`
}

// RecommendationSet always carries every fixed category, possibly empty.
// Error is only populated when synthesis failed.
type RecommendationSet struct {
	Technical []Recommendation
	Content   []Recommendation
	Keywords  []Recommendation
	Backlinks []Recommendation
	UX        []Recommendation
	Error     []Recommendation
}

// FailedRecommendations returns an empty set with reason under RecError.
func FailedRecommendations(reason string) RecommendationSet {
	return RecommendationSet{Error: []Recommendation{{Text: reason}}}
}

func (s *RecommendationSet) slot(c RecommendationCategory) *[]Recommendation {
	switch c {
	case RecTechnical:
		return &s.Technical
	case RecContent:
		return &s.Content
	case RecKeywords:
		return &s.Keywords
	case RecBacklinks:
		return &s.Backlinks
	case RecUX:
		return &s.UX
	case RecError:
		return &s.Error
	}
	return nil
}

// Get returns the items for c; unknown categories yield nil.
func (s RecommendationSet) Get(c RecommendationCategory) []Recommendation {
	if p := s.slot(c); p != nil {
		return *p
	}
	return nil
}

// Add appends items to c. It refuses any category outside the fixed set and
// the error marker.
func (s *RecommendationSet) Add(c RecommendationCategory, items ...Recommendation) error {
	p := s.slot(c)
	if p == nil {
		return fmt.Errorf("unknown recommendation category %q", c)
	}
	*p = append(*p, items...)
	return nil
}

func (s RecommendationSet) Failed() bool {
	return len(s.Error) > 0
}

// FailureReason is the text of the error marker, or "".
func (s RecommendationSet) FailureReason() string {
	if len(s.Error) == 0 {
		return ""
	}
	return s.Error[0].Text
}

// Count is the number of recommendations across the fixed categories.
func (s RecommendationSet) Count() int {
	n := 0
	for _, c := range RecommendationCategories {
		n += len(s.Get(c))
	}
	return n
}

func (s RecommendationSet) MarshalJSON() ([]byte, error) {
	out := make(map[string][]Recommendation, len(RecommendationCategories)+1)
	for _, c := range RecommendationCategories {
		items := s.Get(c)
		if items == nil {
			items = []Recommendation{}
		}
		out[string(c)] = items
	}
	if len(s.Error) > 0 {
		out[string(RecError)] = s.Error
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the stored form. Keys outside the fixed set and the
// error marker are ignored.
func (s *RecommendationSet) UnmarshalJSON(data []byte) error {
	var raw map[string][]Recommendation
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = RecommendationSet{}
	for key, items := range raw {
		if p := s.slot(RecommendationCategory(key)); p != nil {
			*p = items
		}
	}
	return nil
}
