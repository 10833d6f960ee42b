// Package niche derives retention and engagement patterns from the
// top-performing videos of a content niche.
package niche

import (
	"encoding/json"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Video is one item returned by a video platform search.
type Video struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Channel     string        `json:"channel"`
	Query       string        `json:"query"`
	PublishedAt time.Time     `json:"published_at"`
	Duration    time.Duration `json:"-"`
	Views       uint64        `json:"views"`
	Likes       uint64        `json:"likes"`
	Comments    uint64        `json:"comments"`
}

func (v Video) MarshalJSON() ([]byte, error) {
	type plain Video
	return json.Marshal(struct {
		plain
		DurationSeconds int64          `json:"duration_seconds"`
		Bucket          DurationBucket `json:"bucket"`
	}{plain(v), int64(v.Duration.Seconds()), BucketOf(v.Duration)})
}

type DurationBucket string

const (
	BucketShort  DurationBucket = "short"  // under 4 minutes
	BucketMedium DurationBucket = "medium" // 4 to 20 minutes
	BucketLong   DurationBucket = "long"   // over 20 minutes
)

const (
	shortLimit = 4 * time.Minute
	longLimit  = 20 * time.Minute

	// A breakout video has views above this multiple of the niche mean.
	breakoutFactor = 1.5

	lowEngagement  = 0.01
	highEngagement = 0.05

	// Share of titles a pattern needs before it counts as common.
	commonShare = 0.3
)

func BucketOf(d time.Duration) DurationBucket {
	switch {
	case d < shortLimit:
		return BucketShort
	case d > longLimit:
		return BucketLong
	default:
		return BucketMedium
	}
}

// EngagementRate is (likes + comments) / views, 0 for unwatched items.
func EngagementRate(v Video) float64 {
	if v.Views == 0 {
		return 0
	}
	return float64(v.Likes+v.Comments) / float64(v.Views)
}

type BucketStats struct {
	Bucket         DurationBucket `json:"bucket"`
	Count          int            `json:"count"`
	AvgViews       float64        `json:"avg_views"`
	AvgEngagement  float64        `json:"avg_engagement"`
	ViewsPerMinute float64        `json:"views_per_minute"`
}

type RetentionPatterns struct {
	Buckets         []BucketStats  `json:"buckets"`
	DominantBucket  DurationBucket `json:"dominant_bucket,omitempty"`
	BestBucket      DurationBucket `json:"best_bucket,omitempty"`
	MedianDuration  string         `json:"median_duration"`
	AvgDurationSecs float64        `json:"avg_duration_seconds"`
}

type EngagementMetrics struct {
	AvgViews       float64  `json:"avg_views"`
	AvgEngagement  float64  `json:"avg_engagement"`
	LikeRatio      float64  `json:"like_ratio"`
	CommentRatio   float64  `json:"comment_ratio"`
	Leaders        []Leader `json:"leaders"`
	BreakoutVideos []Leader `json:"breakout_videos"`
}

type Leader struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Channel    string  `json:"channel"`
	Views      uint64  `json:"views"`
	Engagement float64 `json:"engagement"`
}

type TitlePatterns struct {
	QuestionShare float64  `json:"question_share"`
	NumberShare   float64  `json:"number_share"`
	BracketShare  float64  `json:"bracket_share"`
	AvgLength     float64  `json:"avg_length"`
	TopTerms      []string `json:"top_terms"`
}

type Suggestions struct {
	Titles         []string `json:"titles"`
	VideoStructure []string `json:"video_structure"`
}

// Patterns is the full content analysis of a niche.
type Patterns struct {
	Sample      int               `json:"sample_size"`
	Retention   RetentionPatterns `json:"retention_patterns"`
	Engagement  EngagementMetrics `json:"engagement_metrics"`
	Titles      TitlePatterns     `json:"title_patterns"`
	Suggestions Suggestions       `json:"content_suggestions"`
	Findings    []string          `json:"findings"`
}

var (
	numberPattern  = regexp.MustCompile(`\b\d+\b`)
	bracketPattern = regexp.MustCompile(`[\[(].+[\])]`)
	wordPattern    = regexp.MustCompile(`[\p{L}\p{N}']+`)
)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true,
	"to": true, "in": true, "for": true, "on": true, "with": true, "is": true,
	"my": true, "your": true, "how": true, "i": true, "you": true, "it": true,
	"this": true, "that": true, "at": true, "by": true, "from": true,
}

// Analyze derives patterns from videos. An empty input yields an empty
// Patterns with no findings.
func Analyze(videos []Video) Patterns {
	p := Patterns{
		Sample:   len(videos),
		Findings: []string{},
	}
	if len(videos) == 0 {
		p.Engagement.Leaders = []Leader{}
		p.Engagement.BreakoutVideos = []Leader{}
		p.Titles.TopTerms = []string{}
		p.Suggestions = Suggestions{Titles: []string{}, VideoStructure: []string{}}
		return p
	}

	p.Retention = retention(videos)
	p.Engagement = engagement(videos)
	p.Titles = titles(videos)
	p.Suggestions = suggest(p)
	p.Findings = findings(p)
	return p
}

func retention(videos []Video) RetentionPatterns {
	type acc struct {
		count      int
		views      float64
		engagement float64
		minutes    float64
	}
	order := []DurationBucket{BucketShort, BucketMedium, BucketLong}
	accs := map[DurationBucket]*acc{}
	for _, b := range order {
		accs[b] = &acc{}
	}

	durations := make([]time.Duration, 0, len(videos))
	var total time.Duration
	for _, v := range videos {
		a := accs[BucketOf(v.Duration)]
		a.count++
		a.views += float64(v.Views)
		a.engagement += EngagementRate(v)
		a.minutes += math.Max(v.Duration.Minutes(), 1.0/60)
		durations = append(durations, v.Duration)
		total += v.Duration
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	r := RetentionPatterns{
		Buckets:         make([]BucketStats, 0, len(order)),
		MedianDuration:  durations[len(durations)/2].Round(time.Second).String(),
		AvgDurationSecs: round(total.Seconds()/float64(len(videos)), 1),
	}

	mostCount, bestViews := 0, -1.0
	for _, b := range order {
		a := accs[b]
		if a.count == 0 {
			continue
		}
		s := BucketStats{
			Bucket:         b,
			Count:          a.count,
			AvgViews:       round(a.views/float64(a.count), 0),
			AvgEngagement:  round(a.engagement/float64(a.count), 4),
			ViewsPerMinute: round(a.views/a.minutes, 1),
		}
		r.Buckets = append(r.Buckets, s)
		if a.count > mostCount {
			mostCount = a.count
			r.DominantBucket = b
		}
		if s.AvgViews > bestViews {
			bestViews = s.AvgViews
			r.BestBucket = b
		}
	}
	return r
}

func engagement(videos []Video) EngagementMetrics {
	var views, likes, comments, rate float64
	for _, v := range videos {
		views += float64(v.Views)
		likes += float64(v.Likes)
		comments += float64(v.Comments)
		rate += EngagementRate(v)
	}
	n := float64(len(videos))
	mean := views / n

	m := EngagementMetrics{
		AvgViews:       round(mean, 0),
		AvgEngagement:  round(rate/n, 4),
		Leaders:        []Leader{},
		BreakoutVideos: []Leader{},
	}
	if views > 0 {
		m.LikeRatio = round(likes/views, 4)
		m.CommentRatio = round(comments/views, 4)
	}

	ranked := append([]Video(nil), videos...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return EngagementRate(ranked[i]) > EngagementRate(ranked[j])
	})
	for i, v := range ranked {
		if i == 3 {
			break
		}
		m.Leaders = append(m.Leaders, leader(v))
	}

	for _, v := range videos {
		if float64(v.Views) > mean*breakoutFactor {
			m.BreakoutVideos = append(m.BreakoutVideos, leader(v))
		}
	}
	return m
}

func leader(v Video) Leader {
	return Leader{
		ID:         v.ID,
		Title:      v.Title,
		Channel:    v.Channel,
		Views:      v.Views,
		Engagement: round(EngagementRate(v), 4),
	}
}

func titles(videos []Video) TitlePatterns {
	var questions, numbers, brackets, length float64
	terms := map[string]int{}
	for _, v := range videos {
		t := strings.TrimSpace(v.Title)
		if strings.Contains(t, "?") {
			questions++
		}
		if numberPattern.MatchString(t) {
			numbers++
		}
		if bracketPattern.MatchString(t) {
			brackets++
		}
		length += float64(len([]rune(t)))

		seen := map[string]bool{}
		for _, w := range wordPattern.FindAllString(strings.ToLower(t), -1) {
			if len(w) < 3 || stopWords[w] || seen[w] {
				continue
			}
			seen[w] = true
			terms[w]++
		}
	}

	n := float64(len(videos))
	return TitlePatterns{
		QuestionShare: round(questions/n, 2),
		NumberShare:   round(numbers/n, 2),
		BracketShare:  round(brackets/n, 2),
		AvgLength:     round(length/n, 1),
		TopTerms:      topTerms(terms, 5),
	}
}

func topTerms(counts map[string]int, limit int) []string {
	out := make([]string, 0, len(counts))
	for w, c := range counts {
		if c > 1 {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] > counts[out[j]]
		}
		return out[i] < out[j]
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func suggest(p Patterns) Suggestions {
	s := Suggestions{Titles: []string{}, VideoStructure: []string{}}

	subject := "this topic"
	if len(p.Titles.TopTerms) > 0 {
		subject = p.Titles.TopTerms[0]
	}
	if p.Titles.NumberShare >= commonShare {
		s.Titles = append(s.Titles, "7 "+subject+" mistakes everyone makes")
	}
	if p.Titles.QuestionShare >= commonShare {
		s.Titles = append(s.Titles, "Is "+subject+" worth it?")
	}
	if p.Titles.BracketShare >= commonShare {
		s.Titles = append(s.Titles, subject+" explained [beginner guide]")
	}
	if len(s.Titles) == 0 {
		s.Titles = append(s.Titles, "The complete "+subject+" guide")
	}

	switch p.Retention.BestBucket {
	case BucketShort:
		s.VideoStructure = append(s.VideoStructure, "hook within the first 5 seconds", "single idea per video")
	case BucketMedium:
		s.VideoStructure = append(s.VideoStructure, "state the payoff in the first 30 seconds", "chapter markers every 2-3 minutes")
	case BucketLong:
		s.VideoStructure = append(s.VideoStructure, "timestamped chapters", "recap segments before each section")
	}
	return s
}

func findings(p Patterns) []string {
	var out []string
	switch p.Retention.DominantBucket {
	case BucketShort:
		out = append(out, "short_form_dominant")
	case BucketLong:
		out = append(out, "long_form_dominant")
	}
	switch {
	case p.Engagement.AvgEngagement < lowEngagement:
		out = append(out, "low_engagement_niche")
	case p.Engagement.AvgEngagement > highEngagement:
		out = append(out, "high_engagement_niche")
	}
	if p.Titles.QuestionShare >= commonShare {
		out = append(out, "question_titles_common")
	}
	if p.Titles.NumberShare >= commonShare {
		out = append(out, "numbered_titles_common")
	}
	if len(p.Engagement.BreakoutVideos) > 0 {
		out = append(out, "breakout_videos_present")
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
