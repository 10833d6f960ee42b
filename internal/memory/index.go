package memory

import "rankwise.app/analyst/internal/model"

type item struct {
	entry model.MemoryEntry
	index int
}

// entryHeap is a min-heap on eviction order: lowest importance first, then
// oldest, then lowest id.
type entryHeap []*item

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	a, b := h[i].entry, h[j].entry
	if a.Importance != b.Importance {
		return a.Importance < b.Importance
	}
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.ID < b.ID
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x any) {
	it := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}

// findingCounts tracks how many retained entries mention each finding,
// globally and per context label.
type findingCounts struct {
	global    map[string]int
	byContext map[string]map[string]int
}

func newFindingCounts() findingCounts {
	return findingCounts{
		global:    map[string]int{},
		byContext: map[string]map[string]int{},
	}
}

func (c findingCounts) add(e model.MemoryEntry) {
	perCtx := c.byContext[e.Context]
	if perCtx == nil {
		perCtx = map[string]int{}
		c.byContext[e.Context] = perCtx
	}
	for _, f := range distinct(e.Observation.Findings) {
		c.global[f]++
		perCtx[f]++
	}
}

func (c findingCounts) remove(e model.MemoryEntry) {
	perCtx := c.byContext[e.Context]
	for _, f := range distinct(e.Observation.Findings) {
		if c.global[f]--; c.global[f] <= 0 {
			delete(c.global, f)
		}
		if perCtx == nil {
			continue
		}
		if perCtx[f]--; perCtx[f] <= 0 {
			delete(perCtx, f)
		}
	}
	if perCtx != nil && len(perCtx) == 0 {
		delete(c.byContext, e.Context)
	}
}

func distinct(findings []string) []string {
	seen := make(map[string]bool, len(findings))
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
