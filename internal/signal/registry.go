package signal

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"rankwise.app/analyst/core/config"
)

// NewProviders builds every provider the configuration enables, each
// wrapped in Resilient. Providers whose credentials are missing are skipped
// and their categories surface as not configured.
func NewProviders(ctx context.Context, cfg config.Config, observer Observer) ([]Provider, error) {
	client := &http.Client{Timeout: cfg.Analysis.ProviderTimeout + 5*time.Second}
	pc := cfg.Providers

	base := ResilienceConfig{
		Retries:      cfg.Analysis.RetryAttempts,
		FailureRatio: cfg.Breaker.FailureRatio,
		MinRequests:  cfg.Breaker.MinRequests,
		OpenTimeout:  cfg.Breaker.OpenTimeout,
	}
	with := func(timeout time.Duration, rps float64) ResilienceConfig {
		rc := base
		rc.Timeout = timeout
		rc.Rate = rps
		rc.Burst = 1
		return rc
	}

	providers := []Provider{
		NewResilient(NewTechnicalAudit(client, pc.AuditUserAgent),
			with(cfg.Analysis.TechnicalTimeout, pc.AuditRate), observer),
	}

	if pc.SerpAPIEnabled() {
		serp := NewSerpClient(client, pc.SerpAPIBaseURL, pc.SerpAPIKey)
		providers = append(providers,
			NewResilient(NewKeywordRank(serp, pc.SearchResultLimit),
				with(cfg.Analysis.KeywordTimeout, pc.SerpAPIRate), observer),
			NewResilient(NewCompetitorScan(serp, pc.SearchResultLimit),
				with(cfg.Analysis.CompetitionTimeout, pc.SerpAPIRate), observer),
		)
	} else {
		slog.WarnContext(ctx, "SERPAPI_KEY not set, keyword and competition signals disabled")
	}

	if pc.YouTubeEnabled() {
		yt, err := NewYouTubeSource(ctx, pc.YouTubeAPIKey)
		if err != nil {
			return nil, fmt.Errorf("creating youtube source: %w", err)
		}
		providers = append(providers,
			NewResilient(NewContentPerformance(yt, pc.SearchResultLimit),
				with(cfg.Analysis.ContentTimeout, pc.YouTubeRate), observer),
		)
	} else {
		slog.WarnContext(ctx, "YOUTUBE_API_KEY not set, content signals disabled")
	}

	return providers, nil
}
