// Package signal defines the contract for external signal providers and the
// providers the analyst ships with.
package signal

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"rankwise.app/analyst/internal/model"
)

// Request identifies what to fetch. URL is set for websites, Keywords for
// niches.
type Request struct {
	Key      string
	Kind     model.TargetKind
	URL      string
	Keywords []string
}

// Host returns the request URL's host, or "" for niche requests.
func (r Request) Host() string {
	if r.URL == "" {
		return ""
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Seeds are the search queries a provider starts from: the host for a
// website, the niche keywords otherwise.
func (r Request) Seeds() []string {
	if r.Kind == model.TargetKindWebsite {
		if h := r.Host(); h != "" {
			return []string{h}
		}
		return nil
	}
	return r.Keywords
}

// KeywordObservation is one keyword measurement. Nil fields were not measured.
type KeywordObservation struct {
	Keyword      string   `json:"keyword"`
	SearchVolume *int     `json:"search_volume,omitempty"`
	Difficulty   *float64 `json:"difficulty,omitempty"`
	Position     *int     `json:"position,omitempty"`
}

// Metrics is a provider's successful result. Data is JSON-encoded into the
// snapshot; Findings are short machine keys used by memory scoring.
type Metrics struct {
	Data     any
	Findings []string
	Keywords []KeywordObservation
}

// Provider fetches one category of metrics. Fetch must be idempotent for the
// same request and time window so it can be retried.
type Provider interface {
	Name() string
	Category() model.Category
	Supports(kind model.TargetKind) bool
	Fetch(ctx context.Context, req Request) (*Metrics, error)
}

// Unavailable explains why a category has no data.
type Unavailable struct {
	Reason  string
	Timeout bool
}

// Outcome is exactly one of Metrics or Unavailable.
type Outcome struct {
	Category    model.Category
	Provider    string
	Metrics     *Metrics
	Unavailable *Unavailable
}

func Success(p Provider, m *Metrics) Outcome {
	if m == nil {
		m = &Metrics{}
	}
	return Outcome{Category: p.Category(), Provider: p.Name(), Metrics: m}
}

func Failure(category model.Category, provider string, err error) Outcome {
	return Outcome{
		Category: category,
		Provider: provider,
		Unavailable: &Unavailable{
			Reason:  err.Error(),
			Timeout: errors.Is(err, context.DeadlineExceeded),
		},
	}
}

func (o Outcome) OK() bool {
	return o.Metrics != nil && o.Unavailable == nil
}

// permanentError marks a failure a retry cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Resilient does not retry it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// StatusError is a non-2xx reply from an upstream HTTP API.
type StatusError struct {
	Service string
	Status  int
	Body    string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Service, e.Status)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.Status, e.Body)
}

// statusErr returns a StatusError, permanent unless the status suggests a
// transient upstream problem.
func statusErr(service string, status int, body string) error {
	err := &StatusError{Service: service, Status: status, Body: strings.TrimSpace(body)}
	if status == 429 || status >= 500 {
		return err
	}
	return Permanent(err)
}
