package synth

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"rankwise.app/analyst/internal/model"
)

var errNoCategories = errors.New("response has none of the expected categories")

// Parse validates a synthesis reply into a RecommendationSet. Keys outside
// the fixed categories are dropped and returned. A reply that is not a JSON
// object, has a non-array category value, or matches no category at all is
// malformed.
func Parse(content string) (model.RecommendationSet, []string, error) {
	body := stripFences(content)
	if body == "" {
		return model.RecommendationSet{}, nil, errors.New("empty response")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return model.RecommendationSet{}, nil, fmt.Errorf("response is not a JSON object: %w", err)
	}

	var set model.RecommendationSet
	var dropped []string
	matched := 0
	for key, value := range raw {
		category, ok := categoryFor(key)
		if !ok {
			dropped = append(dropped, key)
			continue
		}
		items, err := parseItems(value)
		if err != nil {
			return model.RecommendationSet{}, nil, fmt.Errorf("category %q: %w", key, err)
		}
		if err := set.Add(category, items...); err != nil {
			return model.RecommendationSet{}, nil, err
		}
		matched++
	}
	sort.Strings(dropped)

	if matched == 0 {
		return model.RecommendationSet{}, dropped, errNoCategories
	}
	return set, dropped, nil
}

func categoryFor(key string) (model.RecommendationCategory, bool) {
	k := strings.ToLower(strings.TrimSpace(key))
	for _, c := range model.RecommendationCategories {
		if k == string(c) {
			return c, true
		}
	}
	return "", false
}

type rawItem struct {
	Text           string `json:"text"`
	Recommendation string `json:"recommendation"`
	Title          string `json:"title"`
	Priority       string `json:"priority"`
}

func parseItems(value json.RawMessage) ([]model.Recommendation, error) {
	if string(value) == "null" {
		return nil, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(value, &elems); err != nil {
		return nil, errors.New("expected an array")
	}

	out := make([]model.Recommendation, 0, len(elems))
	for _, elem := range elems {
		var text string
		if err := json.Unmarshal(elem, &text); err == nil {
			if text = strings.TrimSpace(text); text != "" {
				out = append(out, model.Recommendation{Text: text})
			}
			continue
		}

		var item rawItem
		if err := json.Unmarshal(elem, &item); err != nil {
			continue
		}
		text = firstNonEmpty(item.Text, item.Recommendation, item.Title)
		if text == "" {
			continue
		}
		rec := model.Recommendation{Text: text}
		if p := model.Priority(strings.ToLower(strings.TrimSpace(item.Priority))); p.Valid() {
			rec.Priority = p
		}
		out = append(out, rec)
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
