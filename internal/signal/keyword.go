package signal

import (
	"context"
	"fmt"
	"strings"

	"rankwise.app/analyst/internal/model"
)

type RankedKeyword struct {
	Keyword    string `json:"keyword"`
	Position   *int   `json:"position"`
	RankingURL string `json:"ranking_url,omitempty"`
}

type KeywordMetrics struct {
	Seeds         []string        `json:"seeds"`
	TotalResults  int64           `json:"total_results"`
	BrandPosition *int            `json:"brand_position,omitempty"`
	Keywords      []RankedKeyword `json:"keywords"`
	Ranked        int             `json:"ranked"`
	TopTen        int             `json:"top_ten"`
	Findings      []string        `json:"findings"`
}

// KeywordRank discovers candidate keywords from related searches of the
// seeds, then looks up the target's organic position for each of them.
type KeywordRank struct {
	serp  *SerpClient
	limit int
}

var _ Provider = (*KeywordRank)(nil)

func NewKeywordRank(serp *SerpClient, limit int) *KeywordRank {
	if limit <= 0 {
		limit = 10
	}
	return &KeywordRank{serp: serp, limit: limit}
}

func (k *KeywordRank) Name() string                   { return "serpapi_keywords" }
func (k *KeywordRank) Category() model.Category       { return model.CategoryKeyword }
func (k *KeywordRank) Supports(model.TargetKind) bool { return true }

func (k *KeywordRank) Fetch(ctx context.Context, req Request) (*Metrics, error) {
	seeds := req.Seeds()
	if len(seeds) == 0 {
		return nil, Permanent(fmt.Errorf("keyword lookup needs a host or keywords"))
	}
	domain := strings.TrimPrefix(req.Host(), "www.")

	m := KeywordMetrics{Seeds: seeds, Keywords: []RankedKeyword{}}
	candidates := newOrderedSet()

	for _, seed := range seeds {
		resp, err := k.serp.Search(ctx, seed, k.limit)
		if err != nil {
			return nil, err
		}
		m.TotalResults += resp.SearchInformation.TotalResults

		if domain != "" {
			m.BrandPosition, _ = resp.PositionOf(domain)
		} else {
			candidates.add(seed)
		}
		for _, rel := range resp.RelatedSearches {
			candidates.add(rel.Query)
		}
	}

	var observations []KeywordObservation
	for _, kw := range candidates.first(k.limit) {
		rk := RankedKeyword{Keyword: kw}
		if domain != "" {
			resp, err := k.serp.Search(ctx, kw, k.limit)
			if err != nil {
				return nil, err
			}
			rk.Position, rk.RankingURL = resp.PositionOf(domain)
			if rk.Position != nil {
				m.Ranked++
				if *rk.Position <= 10 {
					m.TopTen++
				}
			}
		}
		m.Keywords = append(m.Keywords, rk)
		observations = append(observations, KeywordObservation{Keyword: kw, Position: rk.Position})
	}

	m.Findings = keywordFindings(m, domain != "")
	return &Metrics{Data: m, Findings: m.Findings, Keywords: observations}, nil
}

func keywordFindings(m KeywordMetrics, website bool) []string {
	f := []string{}
	if len(m.Keywords) == 0 {
		return append(f, "no_keyword_candidates")
	}
	if !website {
		return f
	}
	if m.BrandPosition == nil {
		f = append(f, "brand_not_ranking")
	}
	switch {
	case m.Ranked == 0:
		f = append(f, "no_ranked_keywords")
	case m.TopTen < 3:
		f = append(f, "few_top_ten_rankings")
	}
	return f
}

// orderedSet keeps first-seen order of normalized strings.
type orderedSet struct {
	seen  map[string]bool
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: map[string]bool{}}
}

func (s *orderedSet) add(v string) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" || s.seen[v] {
		return
	}
	s.seen[v] = true
	s.items = append(s.items, v)
}

func (s *orderedSet) first(n int) []string {
	if len(s.items) > n {
		return s.items[:n]
	}
	return s.items
}
