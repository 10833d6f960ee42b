package service_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"rankwise.app/analyst/internal/model"
	"rankwise.app/analyst/internal/orchestrator"
	"rankwise.app/analyst/internal/queue"
	"rankwise.app/analyst/internal/service"
	"rankwise.app/analyst/internal/store"
	"rankwise.app/analyst/internal/store/storetest"
)

var _ = Describe("AnalysisService", func() {
	var (
		ctx      context.Context
		producer *mockProducer
		svc      service.AnalysisService
	)

	BeforeEach(func() {
		ctx = context.Background()
		producer = &mockProducer{}
		svc = service.NewAnalysisService(&mockAnalyzer{}, producer)
	})

	It("hands synchronous requests to the analyzer", func() {
		res, err := svc.Analyze(ctx, "bakery.test", model.TargetKindWebsite)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.TargetKey).To(Equal("bakery.test"))
	})

	It("enqueues the normalized key", func() {
		out, err := svc.Enqueue(ctx, "https://www.Bakery.test/", "", "trace-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(&service.Enqueued{
			TargetKey: "bakery.test",
			Kind:      model.TargetKindWebsite,
			MessageID: "1700000000000-0",
		}))
		Expect(producer.Tasks()).To(Equal([]queue.Task{{
			Target:  "bakery.test",
			Kind:    model.TargetKindWebsite,
			Attempt: 1,
			TraceID: "trace-1",
		}}))
	})

	It("rejects invalid targets before enqueueing", func() {
		_, err := svc.Enqueue(ctx, "ftp://bakery.test", "", "")
		Expect(orchestrator.KindOf(err)).To(Equal(orchestrator.KindInvalidTarget))
		Expect(producer.Tasks()).To(BeEmpty())
	})

	It("reports a missing queue", func() {
		svc = service.NewAnalysisService(&mockAnalyzer{}, nil)
		_, err := svc.Enqueue(ctx, "bakery.test", "", "")
		Expect(err).To(MatchError(service.ErrAsyncUnavailable))
	})

	It("wraps producer errors", func() {
		producer.enqueueFn = func(context.Context, queue.Task) (string, error) {
			return "", errors.New("connection refused")
		}
		_, err := svc.Enqueue(ctx, "niche:Sourdough", "", "")
		Expect(err).To(MatchError(ContainSubstring("enqueueing niche:sourdough: connection refused")))
	})
})

var _ = Describe("TargetService", func() {
	var (
		ctx    context.Context
		db     *storetest.DB
		svc    service.TargetService
		target *model.Target
	)

	BeforeEach(func() {
		ctx = context.Background()
		db = storetest.New()
		svc = service.NewTargetService(db)

		var err error
		target, err = db.Targets().GetOrCreate(ctx, "bakery.test", model.TargetKindWebsite)
		Expect(err).NotTo(HaveOccurred())

		base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		for i := range 3 {
			Expect(db.Snapshots().Create(ctx, &model.Snapshot{
				ID:         int64(100 + i),
				TargetID:   target.ID,
				AnalyzedAt: base.Add(time.Duration(i) * time.Hour),
				Status:     model.StatusOK,
			})).To(Succeed())
		}
		pos := 4
		Expect(db.Keywords().Upsert(ctx, &model.KeywordRecord{TargetID: target.ID, Keyword: "rye bread", Position: &pos})).To(Succeed())
	})

	It("looks targets up by any equivalent form", func() {
		got, err := svc.Get(ctx, "http://www.BAKERY.test/")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(target.ID))
	})

	It("returns not found for unknown targets", func() {
		_, err := svc.Get(ctx, "unknown.test")
		Expect(errors.Is(err, store.ErrNotFound)).To(BeTrue())
	})

	It("rejects unparseable keys", func() {
		_, err := svc.Get(ctx, "")
		Expect(orchestrator.KindOf(err)).To(Equal(orchestrator.KindInvalidTarget))
	})

	It("lists snapshots newest first with a limit", func() {
		snapshots, err := svc.Snapshots(ctx, "bakery.test", 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(snapshots).To(HaveLen(2))
		Expect(snapshots[0].ID).To(Equal(int64(102)))
		Expect(snapshots[1].ID).To(Equal(int64(101)))

		all, err := svc.Snapshots(ctx, "bakery.test", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(3))
	})

	It("lists keyword records", func() {
		records, err := svc.Keywords(ctx, "bakery.test")
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(1))
		Expect(records[0].Keyword).To(Equal("rye bread"))
		Expect(*records[0].Position).To(Equal(4))
	})

	It("returns empty, not nil, lists", func() {
		_, err := db.Targets().GetOrCreate(ctx, "niche:sourdough", model.TargetKindNiche)
		Expect(err).NotTo(HaveOccurred())

		snapshots, err := svc.Snapshots(ctx, "niche:sourdough", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(snapshots).NotTo(BeNil())
		records, err := svc.Keywords(ctx, "niche:sourdough")
		Expect(err).NotTo(HaveOccurred())
		Expect(records).NotTo(BeNil())
	})
})

var _ = Describe("MemoryService", func() {
	It("normalizes context labels that look like targets", func() {
		recaller := &mockRecaller{}
		svc := service.NewMemoryService(recaller)

		svc.Recall(context.Background(), "https://www.Bakery.test/", 5)
		svc.Recall(context.Background(), "", 0)

		Expect(recaller.calls).To(Equal([]recallCall{
			{label: "bakery.test", limit: 5},
			{label: "", limit: 0},
		}))
	})
})
