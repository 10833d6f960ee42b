package signal

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"rankwise.app/analyst/internal/model"
)

// maxCompetitorQueries bounds the searches one fetch issues beyond the seeds.
const maxCompetitorQueries = 3

type Competitor struct {
	Domain       string   `json:"domain"`
	Appearances  int      `json:"appearances"`
	BestPosition int      `json:"best_position"`
	Queries      []string `json:"queries"`
}

type CompetitionMetrics struct {
	Queries        []string     `json:"queries"`
	Competitors    []Competitor `json:"competitors"`
	TargetBest     *int         `json:"target_best_position,omitempty"`
	TopCompetitor  string       `json:"top_competitor,omitempty"`
	SharedQueries  int          `json:"shared_queries"`
	DistinctInTop3 int          `json:"distinct_in_top3"`
	Findings       []string     `json:"findings"`
}

// CompetitorScan collects the domains that rank alongside, or instead
// of, the target for its seed queries and their top related searches.
type CompetitorScan struct {
	serp  *SerpClient
	limit int
}

var _ Provider = (*CompetitorScan)(nil)

func NewCompetitorScan(serp *SerpClient, limit int) *CompetitorScan {
	if limit <= 0 {
		limit = 10
	}
	return &CompetitorScan{serp: serp, limit: limit}
}

func (c *CompetitorScan) Name() string                   { return "serpapi_competitors" }
func (c *CompetitorScan) Category() model.Category       { return model.CategoryCompetition }
func (c *CompetitorScan) Supports(model.TargetKind) bool { return true }

func (c *CompetitorScan) Fetch(ctx context.Context, req Request) (*Metrics, error) {
	seeds := req.Seeds()
	if len(seeds) == 0 {
		return nil, Permanent(fmt.Errorf("competitor scan needs a host or keywords"))
	}
	domain := strings.TrimPrefix(req.Host(), "www.")

	queries := newOrderedSet()
	for _, s := range seeds {
		queries.add(s)
	}

	byDomain := map[string]*Competitor{}
	top3 := map[string]bool{}
	m := CompetitionMetrics{Competitors: []Competitor{}}

	pending := append([]string(nil), queries.items...)
	extra := 0
	for i := 0; i < len(pending); i++ {
		q := pending[i]
		resp, err := c.serp.Search(ctx, q, c.limit)
		if err != nil {
			return nil, err
		}
		m.Queries = append(m.Queries, q)

		if i < len(seeds) {
			for _, rel := range resp.RelatedSearches {
				if extra == maxCompetitorQueries {
					break
				}
				before := len(queries.items)
				queries.add(rel.Query)
				if len(queries.items) > before {
					pending = append(pending, queries.items[len(queries.items)-1])
					extra++
				}
			}
		}

		targetHere := false
		for _, res := range resp.OrganicResults {
			d := res.Domain()
			if d == "" {
				continue
			}
			if domain != "" && (d == domain || strings.HasSuffix(d, "."+domain)) {
				targetHere = true
				if m.TargetBest == nil || res.Position < *m.TargetBest {
					pos := res.Position
					m.TargetBest = &pos
				}
				continue
			}
			comp, ok := byDomain[d]
			if !ok {
				comp = &Competitor{Domain: d, BestPosition: res.Position}
				byDomain[d] = comp
			}
			if len(comp.Queries) == 0 || comp.Queries[len(comp.Queries)-1] != q {
				comp.Appearances++
				comp.Queries = append(comp.Queries, q)
			}
			if res.Position < comp.BestPosition {
				comp.BestPosition = res.Position
			}
			if res.Position <= 3 {
				top3[d] = true
			}
		}
		if targetHere {
			m.SharedQueries++
		}
	}

	for _, comp := range byDomain {
		m.Competitors = append(m.Competitors, *comp)
	}
	sort.Slice(m.Competitors, func(i, j int) bool {
		a, b := m.Competitors[i], m.Competitors[j]
		if a.Appearances != b.Appearances {
			return a.Appearances > b.Appearances
		}
		if a.BestPosition != b.BestPosition {
			return a.BestPosition < b.BestPosition
		}
		return a.Domain < b.Domain
	})
	if len(m.Competitors) > c.limit {
		m.Competitors = m.Competitors[:c.limit]
	}
	if len(m.Competitors) > 0 {
		m.TopCompetitor = m.Competitors[0].Domain
	}
	m.DistinctInTop3 = len(top3)

	m.Findings = competitionFindings(m, domain != "")
	return &Metrics{Data: m, Findings: m.Findings}, nil
}

func competitionFindings(m CompetitionMetrics, website bool) []string {
	f := []string{}
	if len(m.Competitors) == 0 {
		return f
	}
	top := m.Competitors[0]
	if len(m.Queries) > 1 && float64(top.Appearances)/float64(len(m.Queries)) >= 0.75 && top.BestPosition <= 3 {
		f = append(f, "dominant_competitor")
	}
	if m.DistinctInTop3 <= 3 && len(m.Queries) > 1 {
		f = append(f, "concentrated_top_results")
	}
	if website {
		switch {
		case m.TargetBest == nil:
			f = append(f, "target_absent_from_serp")
		case top.BestPosition < *m.TargetBest:
			f = append(f, "target_outranked")
		}
	}
	return f
}
