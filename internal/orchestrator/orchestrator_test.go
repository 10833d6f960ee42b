package orchestrator_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"rankwise.app/analyst/common/llm"
	"rankwise.app/analyst/internal/memory"
	"rankwise.app/analyst/internal/model"
	"rankwise.app/analyst/internal/orchestrator"
	"rankwise.app/analyst/internal/signal"
	"rankwise.app/analyst/internal/store/storetest"
	"rankwise.app/analyst/internal/synth"
)

type llmFunc func(ctx context.Context, req llm.Request) (*llm.Response, error)

func (f llmFunc) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return f(ctx, req)
}

func (f llmFunc) Model() string { return "mock-model" }

func intPtr(v int) *int { return &v }

func staticMetrics(data any, findings ...string) func(context.Context, signal.Request) (*signal.Metrics, error) {
	return func(context.Context, signal.Request) (*signal.Metrics, error) {
		return &signal.Metrics{Data: data, Findings: findings}, nil
	}
}

var website = []model.TargetKind{model.TargetKindWebsite}
var both = []model.TargetKind{model.TargetKindWebsite, model.TargetKindNiche}

var okRecommendations = model.RecommendationSet{
	Technical: []model.Recommendation{{Text: "Add a meta description", Priority: model.PriorityHigh}},
	Keywords:  []model.Recommendation{{Text: "Target sourdough starter"}},
}

var _ = Describe("Orchestrator", func() {
	var (
		ctx         context.Context
		db          *storetest.DB
		mem         *memory.Memory
		synthesizer *mockSynthesizer
		observer    *recordingObserver
		runner      orchestrator.TxRunner
		cfg         orchestrator.Config

		technical   *mockProvider
		keyword     *mockProvider
		competition *mockProvider
		providers   []signal.Provider
	)

	build := func() *orchestrator.Orchestrator {
		o, err := orchestrator.New(cfg, db.Targets(), runner, providers, synthesizer, mem, observer)
		Expect(err).NotTo(HaveOccurred())
		return o
	}

	BeforeEach(func() {
		ctx = context.Background()
		db = storetest.New()
		mem = memory.New(memory.Config{Capacity: 100, BaseWeight: 1.0, NoveltyBoost: 0.5, RecurrenceBoost: 0.75}, db.MemoryEntries(), nil)
		observer = &recordingObserver{}
		runner = storetestRunner{db: db}
		cfg = orchestrator.Config{
			ProviderTimeout: time.Second,
			PersistTimeout:  time.Second,
		}

		technical = &mockProvider{
			name:      "technical_audit",
			category:  model.CategoryTechnical,
			kinds:     website,
			fetchFunc: staticMetrics(map[string]any{"title": "Bakery", "word_count": 120}, "thin_content", "missing_meta_description"),
		}
		keyword = &mockProvider{
			name:     "serpapi_keywords",
			category: model.CategoryKeyword,
			kinds:    both,
			fetchFunc: func(context.Context, signal.Request) (*signal.Metrics, error) {
				return &signal.Metrics{
					Data:     map[string]any{"ranked": 1},
					Findings: []string{"few_top_ten_rankings"},
					Keywords: []signal.KeywordObservation{
						{Keyword: "sourdough starter", Position: intPtr(3)},
						{Keyword: "rye bread"},
					},
				}, nil
			},
		}
		competition = &mockProvider{
			name:      "serpapi_competitors",
			category:  model.CategoryCompetition,
			kinds:     both,
			fetchFunc: staticMetrics(map[string]any{"top_competitor": "rival.test"}, "dominant_competitor"),
		}
		providers = []signal.Provider{technical, keyword, competition}

		synthesizer = &mockSynthesizer{
			synthesizeFunc: func(context.Context, synth.Input) synth.Outcome {
				return synth.Outcome{Set: okRecommendations}
			},
		}
	})

	Describe("New", func() {
		It("rejects two providers for one category", func() {
			dup := &mockProvider{name: "other_audit", category: model.CategoryTechnical, kinds: website}
			_, err := orchestrator.New(cfg, db.Targets(), runner, append(providers, dup), synthesizer, mem, observer)
			Expect(err).To(MatchError(ContainSubstring("technical_audit and other_audit")))
		})
	})

	Describe("Analyze", func() {
		It("runs the whole pipeline for a website", func() {
			o := build()

			res, err := o.Analyze(ctx, "https://Bakery.test/", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(model.StatusOK))
			Expect(res.Warnings).To(BeEmpty())
			Expect(res.TargetKey).To(Equal("bakery.test"))
			Expect(res.SnapshotID).NotTo(BeZero())
			Expect(res.Recommendations).To(Equal(okRecommendations))
			Expect(res.Metrics).To(HaveKey(model.CategoryTechnical))
			Expect(res.Metrics).To(HaveKey(model.CategoryKeyword))
			Expect(res.Metrics).To(HaveKey(model.CategoryCompetition))

			target, err := db.Targets().GetByKey(ctx, "bakery.test")
			Expect(err).NotTo(HaveOccurred())
			Expect(target.LastAnalyzedAt).NotTo(BeNil())
			Expect(db.SnapshotCount(target.ID)).To(Equal(1))

			latest, err := db.Snapshots().GetLatest(ctx, target.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(latest.ID).To(Equal(res.SnapshotID))
			Expect(latest.Recommendations.Get(model.RecTechnical)).To(Equal(okRecommendations.Technical))
			Expect(latest.Recommendations.Count()).To(Equal(2))

			keywords, err := db.Keywords().ListByTarget(ctx, target.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(keywords).To(HaveLen(2))

			Expect(db.MemoryCount()).To(Equal(1))
			entries := mem.Recall("bakery.test", 1)
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Observation.Findings).To(Equal([]string{
				"dominant_competitor", "few_top_ten_rankings", "missing_meta_description", "thin_content",
			}))
			Expect(entries[0].Result.SnapshotID).To(Equal(res.SnapshotID))

			Expect(observer.Calls()).To(Equal([]analysisCall{{kind: model.TargetKindWebsite, status: "ok"}}))
		})

		It("passes the request and recalled memory to the synthesizer", func() {
			o := build()
			_, err := o.Analyze(ctx, "bakery.test", model.TargetKindWebsite)
			Expect(err).NotTo(HaveOccurred())
			_, err = o.Analyze(ctx, "bakery.test", model.TargetKindWebsite)
			Expect(err).NotTo(HaveOccurred())

			inputs := synthesizer.Inputs()
			Expect(inputs).To(HaveLen(2))
			Expect(inputs[0].Memory).To(BeEmpty())
			Expect(inputs[1].Memory).To(HaveLen(1))
			Expect(inputs[1].TargetKey).To(Equal("bakery.test"))
			Expect(string(inputs[1].Metrics[model.CategoryTechnical])).To(MatchJSON(`{"title":"Bakery","word_count":120}`))
		})

		It("updates keyword records in place on re-observation", func() {
			o := build()
			for range 3 {
				_, err := o.Analyze(ctx, "bakery.test", model.TargetKindWebsite)
				Expect(err).NotTo(HaveOccurred())
			}

			target, err := db.Targets().GetByKey(ctx, "bakery.test")
			Expect(err).NotTo(HaveOccurred())
			keywords, err := db.Keywords().ListByTarget(ctx, target.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(keywords).To(HaveLen(2))
			Expect(db.SnapshotCount(target.ID)).To(Equal(3))
		})

		It("degrades when the competitor provider times out", func() {
			cfg.CategoryTimeouts = map[model.Category]time.Duration{model.CategoryCompetition: 30 * time.Millisecond}
			competition.fetchFunc = func(ctx context.Context, _ signal.Request) (*signal.Metrics, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			}
			o := build()

			res, err := o.Analyze(ctx, "bakery.test", model.TargetKindWebsite)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(model.StatusDegraded))
			Expect(res.Warnings).To(HaveLen(1))
			Expect(res.Warnings[0].Category).To(Equal(model.CategoryCompetition))
			Expect(res.Warnings[0].Kind).To(Equal(model.WarningProviderUnavailable))
			Expect(res.Warnings[0].Reason).To(ContainSubstring("deadline exceeded"))

			data, err := json.Marshal(res)
			Expect(err).NotTo(HaveOccurred())
			var doc map[string]json.RawMessage
			Expect(json.Unmarshal(data, &doc)).To(Succeed())
			Expect(string(doc["technical_analysis"])).To(MatchJSON(`{"title":"Bakery","word_count":120}`))
			Expect(string(doc["keyword_analysis"])).To(MatchJSON(`{"ranked":1}`))
			Expect(string(doc["competition_analysis"])).To(MatchJSON(`{}`))
			Expect(string(doc["status"])).To(Equal(`"degraded"`))

			Expect(synthesizer.Inputs()[0].Unavailable).To(HaveKey(model.CategoryCompetition))

			target, err := db.Targets().GetByKey(ctx, "bakery.test")
			Expect(err).NotTo(HaveOccurred())
			Expect(db.SnapshotCount(target.ID)).To(Equal(1))
		})

		It("stops waiting for a provider that ignores its context", func() {
			cfg.CategoryTimeouts = map[model.Category]time.Duration{model.CategoryTechnical: 20 * time.Millisecond}
			release := make(chan struct{})
			DeferCleanup(func() { close(release) })
			technical.fetchFunc = func(context.Context, signal.Request) (*signal.Metrics, error) {
				<-release
				return &signal.Metrics{}, nil
			}
			o := build()

			start := time.Now()
			res, err := o.Analyze(ctx, "bakery.test", model.TargetKindWebsite)
			Expect(err).NotTo(HaveOccurred())
			Expect(time.Since(start)).To(BeNumerically("<", 500*time.Millisecond))
			Expect(res.Warnings).To(ContainElement(HaveField("Category", model.CategoryTechnical)))
		})

		It("turns a panicking provider into a warning", func() {
			keyword.fetchFunc = func(context.Context, signal.Request) (*signal.Metrics, error) {
				panic("nil map")
			}
			o := build()

			res, err := o.Analyze(ctx, "bakery.test", model.TargetKindWebsite)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Warnings).To(ConsistOf(model.Warning{
				Category: model.CategoryKeyword,
				Kind:     model.WarningProviderUnavailable,
				Reason:   "serpapi_keywords panicked: nil map",
			}))
		})

		It("marks unparseable synthesis as degraded, not failed", func() {
			parsing := synth.New(llmFunc(func(context.Context, llm.Request) (*llm.Response, error) {
				return &llm.Response{Content: "Sure! Here are some ideas..."}, nil
			}), synth.Config{}, nil)
			o, err := orchestrator.New(cfg, db.Targets(), runner, providers, parsing, mem, observer)
			Expect(err).NotTo(HaveOccurred())

			res, err := o.Analyze(ctx, "bakery.test", model.TargetKindWebsite)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(model.StatusDegraded))
			Expect(res.Warnings).To(ContainElement(HaveField("Kind", model.WarningSynthesisMalformed)))
			Expect(res.Recommendations.Failed()).To(BeTrue())
			for _, c := range model.RecommendationCategories {
				Expect(res.Recommendations.Get(c)).To(BeEmpty())
			}

			target, err := db.Targets().GetByKey(ctx, "bakery.test")
			Expect(err).NotTo(HaveOccurred())
			Expect(db.SnapshotCount(target.ID)).To(Equal(1))
			Expect(observer.Calls()).To(Equal([]analysisCall{{kind: model.TargetKindWebsite, status: "degraded"}}))
		})

		It("fails hard when every category is empty and synthesis fails", func() {
			for _, p := range []*mockProvider{technical, keyword, competition} {
				p.fetchFunc = func(context.Context, signal.Request) (*signal.Metrics, error) {
					return nil, errors.New("connection refused")
				}
			}
			synthesizer.synthesizeFunc = func(context.Context, synth.Input) synth.Outcome {
				return synth.Outcome{
					Set:     model.FailedRecommendations("calling mock-model: 503"),
					Failure: &synth.Failure{Kind: synth.FailureProvider, Reason: "calling mock-model: 503"},
				}
			}
			o := build()

			res, err := o.Analyze(ctx, "bakery.test", model.TargetKindWebsite)
			Expect(res).To(BeNil())
			Expect(errors.Is(err, orchestrator.ErrNoSignals)).To(BeTrue())
			Expect(orchestrator.KindOf(err)).To(Equal(orchestrator.KindProviderUnavailable))
			Expect(db.MemoryCount()).To(BeZero())

			target, err := db.Targets().GetByKey(ctx, "bakery.test")
			Expect(err).NotTo(HaveOccurred())
			Expect(db.SnapshotCount(target.ID)).To(BeZero())
			Expect(observer.Calls()).To(Equal([]analysisCall{{kind: model.TargetKindWebsite, status: "failed"}}))
		})

		It("still succeeds degraded when every category is empty but synthesis works", func() {
			for _, p := range []*mockProvider{technical, keyword, competition} {
				p.fetchFunc = func(context.Context, signal.Request) (*signal.Metrics, error) {
					return nil, errors.New("connection refused")
				}
			}
			o := build()

			res, err := o.Analyze(ctx, "bakery.test", model.TargetKindWebsite)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(model.StatusDegraded))
			Expect(res.Warnings).To(HaveLen(3))
		})

		It("warns about categories with no configured provider", func() {
			providers = []signal.Provider{technical, keyword}
			o := build()

			res, err := o.Analyze(ctx, "bakery.test", model.TargetKindWebsite)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Warnings).To(ConsistOf(model.Warning{
				Category: model.CategoryCompetition,
				Kind:     model.WarningProviderMissing,
				Reason:   "no competition provider is configured",
			}))
			Expect(synthesizer.Inputs()[0].Unavailable[model.CategoryCompetition]).To(Equal("not configured"))
		})

		It("collects niche categories only", func() {
			content := &mockProvider{
				name:      "youtube_content",
				category:  model.CategoryContent,
				kinds:     []model.TargetKind{model.TargetKindNiche},
				fetchFunc: staticMetrics(map[string]any{"sample_size": 12}, "short_form_dominant"),
			}
			providers = append(providers, content)
			var seen signal.Request
			keyword.fetchFunc = func(_ context.Context, req signal.Request) (*signal.Metrics, error) {
				seen = req
				return &signal.Metrics{Data: map[string]any{}}, nil
			}
			o := build()

			res, err := o.Analyze(ctx, "Sourdough, Rye Bread", model.TargetKindNiche)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(model.StatusOK))
			Expect(res.TargetKey).To(Equal("niche:rye bread,sourdough"))
			Expect(res.Metrics).To(HaveKey(model.CategoryContent))
			Expect(res.Metrics).NotTo(HaveKey(model.CategoryTechnical))
			Expect(technical.Calls()).To(BeZero())
			Expect(seen.Keywords).To(Equal([]string{"rye bread", "sourdough"}))

			data, err := json.Marshal(res)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`"content_analysis":{"sample_size":12}`))
		})

		It("resolves normalized-equal keys to the same target", func() {
			o := build()
			first, err := o.Analyze(ctx, "http://Example.com/", "")
			Expect(err).NotTo(HaveOccurred())
			second, err := o.Analyze(ctx, "https://www.example.com", "")
			Expect(err).NotTo(HaveOccurred())

			Expect(first.TargetKey).To(Equal(second.TargetKey))
			Expect(first.SnapshotID).NotTo(Equal(second.SnapshotID))
			Expect(db.TargetCount()).To(Equal(1))

			target, err := db.Targets().GetByKey(ctx, "example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(db.SnapshotCount(target.ID)).To(Equal(2))
		})

		It("rejects invalid targets before any external call", func() {
			o := build()
			_, err := o.Analyze(ctx, "   ", model.TargetKindWebsite)
			Expect(orchestrator.KindOf(err)).To(Equal(orchestrator.KindInvalidTarget))
			Expect(technical.Calls() + keyword.Calls() + competition.Calls()).To(BeZero())
			Expect(synthesizer.Inputs()).To(BeEmpty())
			Expect(db.TargetCount()).To(BeZero())
		})

		It("fails when the store is down", func() {
			db.Fail = func(op string) error {
				if op == "targets.get_or_create" {
					return errors.New("connection refused")
				}
				return nil
			}
			o := build()

			_, err := o.Analyze(ctx, "bakery.test", model.TargetKindWebsite)
			Expect(errors.Is(err, orchestrator.ErrStoreUnavailable)).To(BeTrue())
			Expect(orchestrator.KindOf(err)).To(Equal(orchestrator.KindStoreUnavailable))
			Expect(technical.Calls()).To(BeZero())
		})

		It("writes nothing when the transaction fails midway", func() {
			db.Fail = func(op string) error {
				if op == "targets.mark_analyzed" {
					return errors.New("connection reset")
				}
				return nil
			}
			o := build()

			_, err := o.Analyze(ctx, "bakery.test", model.TargetKindWebsite)
			Expect(orchestrator.KindOf(err)).To(Equal(orchestrator.KindStoreUnavailable))

			db.Fail = nil
			target, err := db.Targets().GetByKey(ctx, "bakery.test")
			Expect(err).NotTo(HaveOccurred())
			Expect(target.LastAnalyzedAt).To(BeNil())
			Expect(db.SnapshotCount(target.ID)).To(BeZero())
			Expect(db.MemoryCount()).To(BeZero())
			Expect(mem.Len()).To(BeZero())

			keywords, err := db.Keywords().ListByTarget(ctx, target.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(keywords).To(BeEmpty())
		})

		It("notes degraded memory and carries on", func() {
			db.Fail = func(op string) error {
				if op == "memory.list_top" {
					return errors.New("connection refused")
				}
				return nil
			}
			Expect(mem.Load(ctx)).NotTo(Succeed())
			db.Fail = nil
			o := build()

			res, err := o.Analyze(ctx, "bakery.test", model.TargetKindWebsite)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(model.StatusDegraded))
			Expect(res.Warnings).To(ConsistOf(HaveField("Kind", model.WarningMemoryUnavailable)))
		})

		It("keeps memory rows at capacity while the index is degraded", func() {
			capped := func() *memory.Memory {
				return memory.New(memory.Config{Capacity: 2, BaseWeight: 1.0}, db.MemoryEntries(), nil)
			}
			mem = capped()
			o := build()
			for _, raw := range []string{"a.test", "b.test"} {
				_, err := o.Analyze(ctx, raw, "")
				Expect(err).NotTo(HaveOccurred())
			}

			db.Fail = func(op string) error {
				if op == "memory.list_top" {
					return errors.New("connection refused")
				}
				return nil
			}
			mem = capped()
			Expect(mem.Load(ctx)).NotTo(Succeed())
			db.Fail = nil
			o = build()
			for _, raw := range []string{"c.test", "d.test", "e.test"} {
				_, err := o.Analyze(ctx, raw, "")
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(db.MemoryCount()).To(Equal(2))
		})
	})

	Describe("concurrency", func() {
		It("runs one analysis for concurrent equal keys and shares its result", func() {
			entered := make(chan struct{}, 10)
			release := make(chan struct{})
			synthesizer.synthesizeFunc = func(context.Context, synth.Input) synth.Outcome {
				entered <- struct{}{}
				<-release
				return synth.Outcome{Set: okRecommendations}
			}
			o := build()

			inputs := []string{"https://bakery.test/", "http://BAKERY.test", "bakery.test/", "www.bakery.test", "https://bakery.test:443"}
			results := make([]*model.AnalysisResult, len(inputs))
			errs := make([]error, len(inputs))
			var wg sync.WaitGroup

			wg.Add(1)
			go func() {
				defer wg.Done()
				results[0], errs[0] = o.Analyze(ctx, inputs[0], "")
			}()
			Eventually(entered).Should(Receive())

			for i := 1; i < len(inputs); i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					results[i], errs[i] = o.Analyze(ctx, inputs[i], "")
				}()
			}
			Eventually(func() int { return o.Waiters("bakery.test") }).Should(Equal(len(inputs)))
			close(release)
			wg.Wait()

			for i := range inputs {
				Expect(errs[i]).NotTo(HaveOccurred())
				Expect(results[i].SnapshotID).To(Equal(results[0].SnapshotID))
			}
			Expect(technical.Calls()).To(Equal(1))
			Expect(entered).NotTo(Receive())

			target, err := db.Targets().GetByKey(ctx, "bakery.test")
			Expect(err).NotTo(HaveOccurred())
			Expect(db.SnapshotCount(target.ID)).To(Equal(1))
			Expect(observer.Calls()).To(HaveLen(1))
		})

		It("runs distinct targets independently", func() {
			release := make(chan struct{})
			synthesizer.synthesizeFunc = func(_ context.Context, in synth.Input) synth.Outcome {
				if in.TargetKey == "slow.test" {
					<-release
				}
				return synth.Outcome{Set: okRecommendations}
			}
			o := build()

			done := make(chan error, 1)
			go func() {
				_, err := o.Analyze(ctx, "slow.test", "")
				done <- err
			}()
			Eventually(func() bool { return o.InFlight("slow.test") }).Should(BeTrue())

			_, err := o.Analyze(ctx, "fast.test", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(done).NotTo(Receive())

			close(release)
			Eventually(done).Should(Receive(BeNil()))
		})

		It("keeps the run going while another caller still waits", func() {
			entered := make(chan struct{}, 1)
			release := make(chan struct{})
			synthesizer.synthesizeFunc = func(context.Context, synth.Input) synth.Outcome {
				entered <- struct{}{}
				<-release
				return synth.Outcome{Set: okRecommendations}
			}
			o := build()

			leaderCtx, cancelLeader := context.WithCancel(ctx)
			leaderErr := make(chan error, 1)
			go func() {
				_, err := o.Analyze(leaderCtx, "bakery.test", "")
				leaderErr <- err
			}()
			Eventually(entered).Should(Receive())

			followerRes := make(chan *model.AnalysisResult, 1)
			go func() {
				res, _ := o.Analyze(ctx, "bakery.test", "")
				followerRes <- res
			}()
			Eventually(func() int { return o.Waiters("bakery.test") }).Should(Equal(2))

			cancelLeader()
			var err error
			Eventually(leaderErr).Should(Receive(&err))
			Expect(orchestrator.KindOf(err)).To(Equal(orchestrator.KindCanceled))

			close(release)
			var res *model.AnalysisResult
			Eventually(followerRes).Should(Receive(&res))
			Expect(res).NotTo(BeNil())
			Expect(res.SnapshotID).NotTo(BeZero())
		})

		It("starts a fresh run once every waiter of the previous one gave up", func() {
			var calls atomic.Int32
			entered := make(chan struct{}, 1)
			release := make(chan struct{})
			DeferCleanup(func() { close(release) })
			synthesizer.synthesizeFunc = func(context.Context, synth.Input) synth.Outcome {
				if calls.Add(1) == 1 {
					entered <- struct{}{}
					<-release
				}
				return synth.Outcome{Set: okRecommendations}
			}
			o := build()

			abandonedCtx, cancel := context.WithCancel(ctx)
			abandoned := make(chan error, 1)
			go func() {
				_, err := o.Analyze(abandonedCtx, "bakery.test", "")
				abandoned <- err
			}()
			Eventually(entered).Should(Receive())

			cancel()
			var err error
			Eventually(abandoned).Should(Receive(&err))
			Expect(orchestrator.KindOf(err)).To(Equal(orchestrator.KindCanceled))
			Expect(o.InFlight("bakery.test")).To(BeFalse())

			res, err := o.Analyze(ctx, "bakery.test", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Recommendations).To(Equal(okRecommendations))
			Expect(res.SnapshotID).NotTo(BeZero())
			Expect(calls.Load()).To(Equal(int32(2)))
		})
	})

	Describe("cancellation", func() {
		It("discards a run canceled before persistence", func() {
			callerCtx, cancel := context.WithCancel(ctx)
			synthesizer.synthesizeFunc = func(runCtx context.Context, _ synth.Input) synth.Outcome {
				cancel()
				<-runCtx.Done()
				return synth.Outcome{Set: okRecommendations}
			}
			o := build()

			_, err := o.Analyze(callerCtx, "bakery.test", "")
			Expect(orchestrator.KindOf(err)).To(Equal(orchestrator.KindCanceled))
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())

			Eventually(func() bool { return o.InFlight("bakery.test") }).Should(BeFalse())
			target, err := db.Targets().GetByKey(ctx, "bakery.test")
			Expect(err).NotTo(HaveOccurred())
			Expect(db.SnapshotCount(target.ID)).To(BeZero())
			Expect(db.MemoryCount()).To(BeZero())
		})

		It("finishes a persistence that already started", func() {
			callerCtx, cancel := context.WithCancel(ctx)
			persisting := make(chan struct{})
			release := make(chan struct{})
			runner = hookedRunner{next: storetestRunner{db: db}, before: func(context.Context) {
				close(persisting)
				<-release
			}}
			o := build()

			errCh := make(chan error, 1)
			go func() {
				_, err := o.Analyze(callerCtx, "bakery.test", "")
				errCh <- err
			}()
			Eventually(persisting).Should(BeClosed())
			cancel()

			var err error
			Eventually(errCh).Should(Receive(&err))
			Expect(orchestrator.KindOf(err)).To(Equal(orchestrator.KindCanceled))

			close(release)
			Eventually(func() bool { return o.InFlight("bakery.test") }).Should(BeFalse())
			target, err := db.Targets().GetByKey(ctx, "bakery.test")
			Expect(err).NotTo(HaveOccurred())
			Expect(db.SnapshotCount(target.ID)).To(Equal(1))
			Expect(db.MemoryCount()).To(Equal(1))
		})

		It("bounds a whole run with the configured timeout", func() {
			cfg.Timeout = 50 * time.Millisecond
			synthesizer.synthesizeFunc = func(ctx context.Context, _ synth.Input) synth.Outcome {
				<-ctx.Done()
				return synth.Outcome{
					Set:     model.FailedRecommendations(ctx.Err().Error()),
					Failure: &synth.Failure{Kind: synth.FailureProvider, Reason: ctx.Err().Error()},
				}
			}
			o := build()

			_, err := o.Analyze(ctx, "bakery.test", "")
			Expect(orchestrator.KindOf(err)).To(Equal(orchestrator.KindCanceled))
			Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
		})
	})
})
