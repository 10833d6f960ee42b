package signal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"rankwise.app/analyst/internal/model"
)

const (
	maxPageBytes = 5 << 20

	titleMax           = 60
	titleMin           = 10
	metaDescriptionMax = 160
	thinContentWords   = 300
	slowResponse       = 3 * time.Second
	largePageBytes     = 3 << 20
)

type Headings struct {
	H1 int `json:"h1"`
	H2 int `json:"h2"`
	H3 int `json:"h3"`
}

// TechnicalMetrics is the on-page audit of a single URL.
type TechnicalMetrics struct {
	URL                   string   `json:"url"`
	FinalURL              string   `json:"final_url"`
	StatusCode            int      `json:"status_code"`
	HTTPS                 bool     `json:"https"`
	ResponseTimeMS        int64    `json:"response_time_ms"`
	PageBytes             int      `json:"page_bytes"`
	Title                 string   `json:"title"`
	TitleLength           int      `json:"title_length"`
	MetaDescription       string   `json:"meta_description"`
	MetaDescriptionLength int      `json:"meta_description_length"`
	Robots                string   `json:"robots,omitempty"`
	Noindex               bool     `json:"noindex"`
	Viewport              bool     `json:"viewport"`
	Canonical             string   `json:"canonical,omitempty"`
	Lang                  string   `json:"lang,omitempty"`
	Headings              Headings `json:"headings"`
	WordCount             int      `json:"word_count"`
	Images                int      `json:"images"`
	ImagesMissingAlt      int      `json:"images_missing_alt"`
	InternalLinks         int      `json:"internal_links"`
	ExternalLinks         int      `json:"external_links"`
	Findings              []string `json:"findings"`
}

// TechnicalAudit fetches a page and audits its markup.
type TechnicalAudit struct {
	client    *http.Client
	userAgent string
}

var _ Provider = (*TechnicalAudit)(nil)

func NewTechnicalAudit(client *http.Client, userAgent string) *TechnicalAudit {
	if client == nil {
		client = http.DefaultClient
	}
	return &TechnicalAudit{client: client, userAgent: userAgent}
}

func (a *TechnicalAudit) Name() string             { return "technical_audit" }
func (a *TechnicalAudit) Category() model.Category { return model.CategoryTechnical }

func (a *TechnicalAudit) Supports(kind model.TargetKind) bool {
	return kind == model.TargetKindWebsite
}

func (a *TechnicalAudit) Fetch(ctx context.Context, req Request) (*Metrics, error) {
	if req.URL == "" {
		return nil, Permanent(fmt.Errorf("technical audit needs a URL"))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, Permanent(fmt.Errorf("building request: %w", err))
	}
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml")
	if a.userAgent != "" {
		httpReq.Header.Set("User-Agent", a.userAgent)
	}

	start := time.Now()
	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", req.URL, err)
	}
	elapsed := time.Since(start)

	if resp.StatusCode >= 400 {
		return nil, statusErr("page", resp.StatusCode, "")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, Permanent(fmt.Errorf("parsing HTML: %w", err))
	}

	m := audit(doc, resp.Request.URL)
	m.URL = req.URL
	m.StatusCode = resp.StatusCode
	m.ResponseTimeMS = elapsed.Milliseconds()
	m.PageBytes = len(body)
	if strings.Contains(strings.ToLower(resp.Header.Get("X-Robots-Tag")), "noindex") {
		m.Noindex = true
	}
	m.Findings = technicalFindings(m, elapsed)

	return &Metrics{Data: m, Findings: m.Findings}, nil
}

func audit(doc *goquery.Document, final *url.URL) TechnicalMetrics {
	m := TechnicalMetrics{
		FinalURL: final.String(),
		HTTPS:    final.Scheme == "https",
	}

	m.Title = strings.TrimSpace(doc.Find("head title").First().Text())
	m.TitleLength = len([]rune(m.Title))

	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		m.MetaDescription = strings.TrimSpace(desc)
		m.MetaDescriptionLength = len([]rune(m.MetaDescription))
	}
	if robots, ok := doc.Find(`meta[name="robots"]`).Attr("content"); ok {
		m.Robots = strings.TrimSpace(robots)
		m.Noindex = strings.Contains(strings.ToLower(m.Robots), "noindex")
	}
	m.Viewport = doc.Find(`meta[name="viewport"]`).Length() > 0
	if canonical, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok {
		m.Canonical = strings.TrimSpace(canonical)
	}
	m.Lang, _ = doc.Find("html").Attr("lang")

	m.Headings = Headings{
		H1: doc.Find("h1").Length(),
		H2: doc.Find("h2").Length(),
		H3: doc.Find("h3").Length(),
	}

	body := doc.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	m.WordCount = len(strings.Fields(body.Text()))

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		m.Images++
		if alt, ok := s.Attr("alt"); !ok || strings.TrimSpace(alt) == "" {
			m.ImagesMissingAlt++
		}
	})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		link, err := final.Parse(strings.TrimSpace(href))
		if err != nil || (link.Scheme != "http" && link.Scheme != "https") {
			return
		}
		if strings.EqualFold(strings.TrimPrefix(link.Hostname(), "www."), strings.TrimPrefix(final.Hostname(), "www.")) {
			m.InternalLinks++
		} else {
			m.ExternalLinks++
		}
	})

	return m
}

func technicalFindings(m TechnicalMetrics, elapsed time.Duration) []string {
	var f []string
	switch {
	case m.Title == "":
		f = append(f, "missing_title")
	case m.TitleLength > titleMax:
		f = append(f, "title_too_long")
	case m.TitleLength < titleMin:
		f = append(f, "title_too_short")
	}
	switch {
	case m.MetaDescription == "":
		f = append(f, "missing_meta_description")
	case m.MetaDescriptionLength > metaDescriptionMax:
		f = append(f, "meta_description_too_long")
	}
	switch {
	case m.Headings.H1 == 0:
		f = append(f, "missing_h1")
	case m.Headings.H1 > 1:
		f = append(f, "multiple_h1")
	}
	if !m.Viewport {
		f = append(f, "missing_viewport")
	}
	if m.Canonical == "" {
		f = append(f, "missing_canonical")
	}
	if m.ImagesMissingAlt > 0 {
		f = append(f, "images_missing_alt")
	}
	if m.WordCount < thinContentWords {
		f = append(f, "thin_content")
	}
	if !m.HTTPS {
		f = append(f, "not_https")
	}
	if elapsed > slowResponse {
		f = append(f, "slow_response")
	}
	if m.PageBytes > largePageBytes {
		f = append(f, "large_page")
	}
	if m.Noindex {
		f = append(f, "noindex")
	}
	if f == nil {
		f = []string{}
	}
	return f
}
