// Package synth turns collected metrics into a categorized recommendation
// set with one generative call.
package synth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rankwise.app/analyst/common/llm"
	"rankwise.app/analyst/common/logger"
	"rankwise.app/analyst/core/config"
	"rankwise.app/analyst/internal/model"
)

// DefaultTemperature bounds sampling randomness of the synthesis call.
const DefaultTemperature = 0.7

type FailureKind string

const (
	FailureProvider  FailureKind = "provider"
	FailureMalformed FailureKind = "malformed"
)

// Failure is the typed reason a synthesis produced no recommendations.
type Failure struct {
	Kind   FailureKind
	Reason string
}

// Outcome is either a parsed set (Failure nil) or a set carrying only the
// error marker with Failure describing it.
type Outcome struct {
	Set     model.RecommendationSet
	Failure *Failure
}

func (o Outcome) OK() bool { return o.Failure == nil }

// Input is everything the prompt is built from.
type Input struct {
	TargetKey string
	Kind      model.TargetKind
	// Metrics holds the collected categories; Unavailable maps the missing
	// ones to a reason.
	Metrics     map[model.Category]json.RawMessage
	Unavailable map[model.Category]string
	Memory      []model.MemoryEntry
}

// Observer is told the outcome of every synthesis. Implemented by metrics.
type Observer interface {
	Synthesis(outcome string, d time.Duration)
}

type noopObserver struct{}

func (noopObserver) Synthesis(string, time.Duration) {}

type Config struct {
	MaxTokens   int
	Temperature float64
	// Retries is how many extra attempts a retryable LLM error gets.
	Retries int
	Backoff time.Duration
}

func ConfigFrom(cfg config.LLMConfig) Config {
	return Config{
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Retries:     1,
		Backoff:     time.Second,
	}
}

type Synthesizer struct {
	client   llm.Client
	cfg      Config
	observer Observer
	schema   any
}

func New(client llm.Client, cfg Config, observer Observer) *Synthesizer {
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &Synthesizer{
		client:   client,
		cfg:      cfg,
		observer: observer,
		schema:   llm.GenerateSchema[responseSchema](),
	}
}

// Synthesize never returns an error: provider and parse failures come back
// as an Outcome with the error marker set.
func (s *Synthesizer) Synthesize(ctx context.Context, in Input) Outcome {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "analyst.synth"})
	span := logger.StartSpan(ctx, "synth.synthesize")
	defer span.End()
	ctx = span.Context()

	start := time.Now()
	req := llm.Request{
		SystemPrompt: systemPrompt(in.Kind),
		UserPrompt:   BuildPrompt(in),
		SchemaName:   "recommendations",
		Schema:       s.schema,
		MaxTokens:    s.cfg.MaxTokens,
		Temperature:  llm.Temp(s.cfg.Temperature),
	}

	resp, err := s.complete(ctx, req)
	if err != nil {
		span.RecordError(err)
		s.observer.Synthesis("provider_error", time.Since(start))
		slog.WarnContext(ctx, "synthesis call failed", "error", err)
		return failed(FailureProvider, err.Error())
	}

	set, dropped, err := Parse(resp.Content)
	if len(dropped) > 0 {
		slog.DebugContext(ctx, "dropped unknown recommendation categories", "keys", dropped)
	}
	if err != nil {
		span.RecordError(err)
		s.observer.Synthesis("malformed", time.Since(start))
		slog.WarnContext(ctx, "synthesis response malformed",
			"error", err,
			"response", logger.Truncate(resp.Content, 500))
		return failed(FailureMalformed, err.Error())
	}

	s.observer.Synthesis("ok", time.Since(start))
	slog.InfoContext(ctx, "recommendations synthesized",
		"count", set.Count(),
		"prompt_tokens", resp.PromptTokens,
		"completion_tokens", resp.CompletionTokens)
	return Outcome{Set: set}
}

func (s *Synthesizer) complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= s.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, errors.Join(lastErr, ctx.Err())
			case <-time.After(s.cfg.Backoff * time.Duration(attempt)):
			}
		}
		resp, err := s.client.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = fmt.Errorf("calling %s: %w", s.client.Model(), err)
		if !llm.IsRetryable(ctx, err) {
			break
		}
	}
	return nil, lastErr
}

func failed(kind FailureKind, reason string) Outcome {
	return Outcome{
		Set:     model.FailedRecommendations(reason),
		Failure: &Failure{Kind: kind, Reason: reason},
	}
}
