package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"rankwise.app/analyst/internal/http/handler"
	"rankwise.app/analyst/internal/http/middleware"
	"rankwise.app/analyst/internal/model"
	"rankwise.app/analyst/internal/orchestrator"
	"rankwise.app/analyst/internal/service"
)

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

var _ = Describe("AnalysisHandler", func() {
	var (
		router *gin.Engine
		svc    *mockAnalysisService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		router.Use(middleware.TraceID("X-Trace-Id"))
		svc = &mockAnalysisService{}
		h := handler.NewAnalysisHandler(svc)
		router.POST("/analyses", h.Analyze)
		router.POST("/analyses/async", h.Enqueue)
	})

	It("returns the result document", func() {
		svc.analyzeFn = func(_ context.Context, target string, kind model.TargetKind) (*model.AnalysisResult, error) {
			Expect(target).To(Equal("https://bakery.test"))
			Expect(kind).To(Equal(model.TargetKindWebsite))
			return &model.AnalysisResult{
				TargetKey:  "bakery.test",
				Kind:       model.TargetKindWebsite,
				Status:     model.StatusDegraded,
				SnapshotID: 42,
				AnalyzedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
				Warnings: []model.Warning{{
					Category: model.CategoryCompetition,
					Kind:     model.WarningProviderUnavailable,
					Reason:   "timeout",
				}},
				Metrics: map[model.Category]json.RawMessage{
					model.CategoryTechnical: json.RawMessage(`{"word_count":120}`),
				},
			}, nil
		}

		w := postJSON(router, "/analyses", `{"target":"https://bakery.test","kind":"website"}`)
		Expect(w.Code).To(Equal(http.StatusOK))

		var doc map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &doc)).To(Succeed())
		Expect(doc["status"]).To(Equal("degraded"))
		Expect(doc["technical_analysis"]).To(Equal(map[string]any{"word_count": float64(120)}))
		Expect(doc["competition_analysis"]).To(Equal(map[string]any{}))
		Expect(doc).NotTo(HaveKey("content_analysis"))
		Expect(doc["recommendations"]).To(HaveKey("backlinks"))
	})

	DescribeTable("rejects bad bodies",
		func(body string) {
			w := postJSON(router, "/analyses", body)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		},
		Entry("malformed json", `{`),
		Entry("missing target", `{"kind":"website"}`),
		Entry("unknown kind", `{"target":"bakery.test","kind":"app"}`),
	)

	DescribeTable("maps pipeline errors to status codes",
		func(err error, want int, wantKind string) {
			svc.analyzeFn = func(context.Context, string, model.TargetKind) (*model.AnalysisResult, error) {
				return nil, err
			}
			w := postJSON(router, "/analyses", `{"target":"bakery.test"}`)
			Expect(w.Code).To(Equal(want))

			var body map[string]string
			Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
			Expect(body["kind"]).To(Equal(wantKind))
		},
		Entry("invalid target",
			&orchestrator.Error{Kind: orchestrator.KindInvalidTarget, Err: orchestrator.ErrInvalidTarget},
			http.StatusBadRequest, "invalid_target"),
		Entry("store down",
			&orchestrator.Error{Kind: orchestrator.KindStoreUnavailable, Err: orchestrator.ErrStoreUnavailable},
			http.StatusServiceUnavailable, "store_unavailable"),
		Entry("no signals",
			&orchestrator.Error{Kind: orchestrator.KindProviderUnavailable, Err: orchestrator.ErrNoSignals},
			http.StatusBadGateway, "provider_unavailable"),
		Entry("malformed with no signals",
			&orchestrator.Error{Kind: orchestrator.KindSynthesisMalformed, Err: orchestrator.ErrNoSignals},
			http.StatusBadGateway, "synthesis_malformed"),
		Entry("run timeout",
			&orchestrator.Error{Kind: orchestrator.KindCanceled, Err: context.DeadlineExceeded},
			http.StatusGatewayTimeout, "canceled"),
		Entry("caller canceled",
			&orchestrator.Error{Kind: orchestrator.KindCanceled, Err: context.Canceled},
			handler.StatusClientClosedRequest, "canceled"),
		Entry("unknown",
			fmt.Errorf("analysis panicked: boom"),
			http.StatusInternalServerError, ""),
	)

	It("accepts async requests with the request trace id", func() {
		svc.enqueueFn = func(_ context.Context, target string, kind model.TargetKind, traceID string) (*service.Enqueued, error) {
			Expect(traceID).To(Equal("trace-abc"))
			return &service.Enqueued{TargetKey: "niche:sourdough", Kind: model.TargetKindNiche, MessageID: "1-0"}, nil
		}

		req := httptest.NewRequest(http.MethodPost, "/analyses/async", bytes.NewBufferString(`{"target":"Sourdough","kind":"niche"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Trace-Id", "trace-abc")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusAccepted))
		Expect(w.Body.String()).To(MatchJSON(`{"target_key":"niche:sourdough","kind":"niche","message_id":"1-0","status":"queued"}`))
	})

	It("returns 503 without a queue", func() {
		svc.enqueueFn = func(context.Context, string, model.TargetKind, string) (*service.Enqueued, error) {
			return nil, service.ErrAsyncUnavailable
		}
		w := postJSON(router, "/analyses/async", `{"target":"bakery.test"}`)
		Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
	})
})
