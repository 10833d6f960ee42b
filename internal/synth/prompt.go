package synth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"rankwise.app/analyst/internal/model"
)

type schemaItem struct {
	Text     string `json:"text" jsonschema:"description=One concrete action"`
	Priority string `json:"priority,omitempty" jsonschema:"enum=high,enum=medium,enum=low"`
}

type responseSchema struct {
	Technical []schemaItem `json:"technical"`
	Content   []schemaItem `json:"content"`
	Keywords  []schemaItem `json:"keywords"`
	Backlinks []schemaItem `json:"backlinks"`
	UX        []schemaItem `json:"ux"`
}

func systemPrompt(kind model.TargetKind) string {
	subject := "website"
	focus := "on-page technical fixes, keyword targeting, content gaps, backlink opportunities and user experience"
	if kind == model.TargetKindNiche {
		subject = "video content niche"
		focus = "video titles and structure, target keywords, content formats that retain viewers, collaboration and promotion opportunities, and viewer experience"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an SEO analyst. Given the collected metrics for a %s, write prioritized, specific recommendations covering %s.\n", subject, focus)
	b.WriteString("Past observations may be included; weight recurring problems higher.\n")
	b.WriteString("Respond with a single JSON object with exactly these keys: ")
	keys := make([]string, len(model.RecommendationCategories))
	for i, c := range model.RecommendationCategories {
		keys[i] = string(c)
	}
	b.WriteString(strings.Join(keys, ", "))
	b.WriteString(". Each key maps to an array of {\"text\", \"priority\"} objects; priority is high, medium or low. Use an empty array when a category has nothing to add.")
	return b.String()
}

// BuildPrompt renders the input deterministically: categories in a fixed
// order, metrics as compact JSON, memory in recall order.
func BuildPrompt(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target: %s (%s)\n", in.TargetKey, in.Kind)

	for _, c := range in.Kind.Categories() {
		fmt.Fprintf(&b, "\n## %s\n", c.ResultKey())
		if raw, ok := in.Metrics[c]; ok && len(raw) > 0 {
			b.WriteString(compact(raw))
			b.WriteString("\n")
			continue
		}
		reason := in.Unavailable[c]
		if reason == "" {
			reason = "not collected"
		}
		fmt.Fprintf(&b, "unavailable: %s\n", reason)
	}

	if len(in.Memory) > 0 {
		b.WriteString("\n## past_observations\n")
		for _, e := range in.Memory {
			findings := "none"
			if len(e.Observation.Findings) > 0 {
				findings = strings.Join(e.Observation.Findings, ", ")
			}
			fmt.Fprintf(&b, "- %s %s importance=%.2f status=%s findings: %s\n",
				e.Timestamp.UTC().Format("2006-01-02"), e.Context, e.Importance, e.Result.Status, findings)
		}
	}
	return b.String()
}

func compact(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
