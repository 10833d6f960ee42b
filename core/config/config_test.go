package config_test

import (
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"rankwise.app/analyst/core/config"
)

var _ = Describe("Load", func() {
	setEnv := func(key, value string) {
		prev, had := os.LookupEnv(key)
		Expect(os.Setenv(key, value)).To(Succeed())
		DeferCleanup(func() {
			if had {
				_ = os.Setenv(key, prev)
			} else {
				_ = os.Unsetenv(key)
			}
		})
	}

	BeforeEach(func() {
		setEnv("ANALYST_ENV", "test")
		setEnv("SYNTHESIS_LLM_API_KEY", "sk-test")
	})

	It("applies defaults", func() {
		cfg, err := config.Load(config.ServiceTypeServer)
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.Memory.Capacity).To(Equal(1000))
		Expect(cfg.Memory.BaseWeight).To(Equal(1.0))
		Expect(cfg.Memory.RefreshInterval).To(Equal(time.Minute))
		Expect(cfg.SynthesisLLM.Temperature).To(Equal(0.7))
		Expect(cfg.Providers.SearchResultLimit).To(Equal(10))
		Expect(cfg.Analysis.ProviderTimeout).To(Equal(15 * time.Second))
		Expect(cfg.Analysis.CompetitionTimeout).To(Equal(15 * time.Second))
		Expect(cfg.OTel.ServiceName).To(Equal("analyst-server"))
		Expect(cfg.IsDevelopment()).To(BeFalse())
	})

	It("derives per-provider timeouts from PROVIDER_TIMEOUT", func() {
		setEnv("PROVIDER_TIMEOUT", "3s")
		setEnv("KEYWORD_TIMEOUT", "7s")

		cfg, err := config.Load(config.ServiceTypeWorker)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Analysis.TechnicalTimeout).To(Equal(3 * time.Second))
		Expect(cfg.Analysis.KeywordTimeout).To(Equal(7 * time.Second))
	})

	It("ignores unparsable numbers", func() {
		setEnv("MEMORY_CAPACITY", "lots")

		cfg, err := config.Load(config.ServiceTypeServer)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Memory.Capacity).To(Equal(1000))
	})

	It("requires a synthesis key", func() {
		setEnv("SYNTHESIS_LLM_API_KEY", "")

		_, err := config.Load(config.ServiceTypeServer)
		Expect(err).To(MatchError(ContainSubstring("SYNTHESIS_LLM_API_KEY")))
	})

	It("rejects an unknown synthesis provider", func() {
		setEnv("SYNTHESIS_LLM_PROVIDER", "mystery")

		_, err := config.Load(config.ServiceTypeServer)
		Expect(err).To(HaveOccurred())
	})

	It("rejects a non-positive memory capacity", func() {
		setEnv("MEMORY_CAPACITY", "0")

		_, err := config.Load(config.ServiceTypeServer)
		Expect(err).To(MatchError(ContainSubstring("MEMORY_CAPACITY")))
	})
})
