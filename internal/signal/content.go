package signal

import (
	"context"
	"fmt"

	"rankwise.app/analyst/internal/model"
	"rankwise.app/analyst/internal/niche"
)

// VideoSource returns the most-viewed videos for a query.
type VideoSource interface {
	TopVideos(ctx context.Context, query string, limit int) ([]niche.Video, error)
}

type ContentMetrics struct {
	Keywords []string      `json:"keywords"`
	Videos   []niche.Video `json:"top_videos"`
	niche.Patterns
}

// ContentPerformance aggregates top videos across the niche keywords and
// derives their retention and engagement patterns.
type ContentPerformance struct {
	source VideoSource
	limit  int
}

var _ Provider = (*ContentPerformance)(nil)

func NewContentPerformance(source VideoSource, limit int) *ContentPerformance {
	if limit <= 0 {
		limit = 10
	}
	return &ContentPerformance{source: source, limit: limit}
}

func (c *ContentPerformance) Name() string             { return "youtube_content" }
func (c *ContentPerformance) Category() model.Category { return model.CategoryContent }

func (c *ContentPerformance) Supports(kind model.TargetKind) bool {
	return kind == model.TargetKindNiche
}

func (c *ContentPerformance) Fetch(ctx context.Context, req Request) (*Metrics, error) {
	if len(req.Keywords) == 0 {
		return nil, Permanent(fmt.Errorf("content analysis needs niche keywords"))
	}

	seen := map[string]bool{}
	var videos []niche.Video
	for _, kw := range req.Keywords {
		found, err := c.source.TopVideos(ctx, kw, c.limit)
		if err != nil {
			return nil, err
		}
		for _, v := range found {
			if seen[v.ID] {
				continue
			}
			seen[v.ID] = true
			v.Query = kw
			videos = append(videos, v)
		}
	}
	if videos == nil {
		videos = []niche.Video{}
	}

	patterns := niche.Analyze(videos)
	m := ContentMetrics{
		Keywords: req.Keywords,
		Videos:   videos,
		Patterns: patterns,
	}
	return &Metrics{Data: m, Findings: patterns.Findings}, nil
}
