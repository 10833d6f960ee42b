package orchestrator_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"rankwise.app/analyst/internal/model"
	"rankwise.app/analyst/internal/orchestrator"
)

var _ = Describe("ParseTarget", func() {
	DescribeTable("normalizes website keys",
		func(raw, key, url string) {
			spec, err := orchestrator.ParseTarget(raw, model.TargetKindWebsite)
			Expect(err).NotTo(HaveOccurred())
			Expect(spec.Key).To(Equal(key))
			Expect(spec.URL).To(Equal(url))
			Expect(spec.Kind).To(Equal(model.TargetKindWebsite))
		},
		Entry("bare host", "bakery.test", "bakery.test", "https://bakery.test"),
		Entry("case and trailing slash", "HTTPS://Bakery.Test/", "bakery.test", "https://bakery.test"),
		Entry("http keeps its scheme for fetching", "http://bakery.test", "bakery.test", "http://bakery.test"),
		Entry("www prefix", "https://www.bakery.test", "bakery.test", "https://www.bakery.test"),
		Entry("default port", "https://bakery.test:443/", "bakery.test", "https://bakery.test"),
		Entry("other port", "http://bakery.test:8080", "bakery.test:8080", "http://bakery.test:8080"),
		Entry("path case kept", "bakery.test/Recipes/", "bakery.test/Recipes", "https://bakery.test/Recipes"),
		Entry("fragment dropped", "bakery.test/menu#rye", "bakery.test/menu", "https://bakery.test/menu"),
		Entry("query sorted", "bakery.test/?b=2&a=1", "bakery.test?a=1&b=2", "https://bakery.test?a=1&b=2"),
		Entry("surrounding space", "  bakery.test  ", "bakery.test", "https://bakery.test"),
		Entry("escaped unreserved character", "bakery.test/%7Erye", "bakery.test/~rye", "https://bakery.test/~rye"),
		Entry("unreserved character", "bakery.test/~rye", "bakery.test/~rye", "https://bakery.test/~rye"),
		Entry("lowercase escapes", "bakery.test/caf%c3%a9", "bakery.test/caf%C3%A9", "https://bakery.test/caf%C3%A9"),
		Entry("bare www domain kept", "https://www.com", "www.com", "https://www.com"),
		Entry("www on a single-label host kept", "http://www.localhost:8080", "www.localhost:8080", "http://www.localhost:8080"),
	)

	It("resolves equivalent website inputs to one key", func() {
		inputs := []string{"http://Example.com/", "https://example.com", "example.com", "www.EXAMPLE.com/", "https://example.com:443"}
		for _, raw := range inputs {
			spec, err := orchestrator.ParseTarget(raw, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(spec.Key).To(Equal("example.com"), raw)
		}
	})

	DescribeTable("normalizes niche keys",
		func(raw string, kind model.TargetKind, key string, keywords []string) {
			spec, err := orchestrator.ParseTarget(raw, kind)
			Expect(err).NotTo(HaveOccurred())
			Expect(spec.Kind).To(Equal(model.TargetKindNiche))
			Expect(spec.Key).To(Equal(key))
			Expect(spec.Keywords).To(Equal(keywords))
			Expect(spec.URL).To(BeEmpty())
		},
		Entry("sorted and deduped", "Sourdough, rye bread,sourdough", model.TargetKindNiche,
			"niche:rye bread,sourdough", []string{"rye bread", "sourdough"}),
		Entry("inner whitespace collapsed", "rye   Bread", model.TargetKindNiche,
			"niche:rye bread", []string{"rye bread"}),
		Entry("prefix inferred", "niche:Sourdough", model.TargetKind(""),
			"niche:sourdough", []string{"sourdough"}),
		Entry("prefix accepted with explicit kind", "NICHE:sourdough", model.TargetKindNiche,
			"niche:sourdough", []string{"sourdough"}),
	)

	DescribeTable("rejects invalid targets",
		func(raw string, kind model.TargetKind) {
			_, err := orchestrator.ParseTarget(raw, kind)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, orchestrator.ErrInvalidTarget)).To(BeTrue())
			Expect(orchestrator.KindOf(err)).To(Equal(orchestrator.KindInvalidTarget))
		},
		Entry("empty", "", model.TargetKindWebsite),
		Entry("blank", "   ", model.TargetKind("")),
		Entry("ftp", "ftp://bakery.test", model.TargetKindWebsite),
		Entry("no host", "https:///path", model.TargetKindWebsite),
		Entry("bad escape", "https://bakery.test/%zz", model.TargetKindWebsite),
		Entry("niche key as website", "niche:sourdough", model.TargetKindWebsite),
		Entry("empty niche", " , ,", model.TargetKindNiche),
		Entry("unknown kind", "bakery.test", model.TargetKind("podcast")),
	)
})
