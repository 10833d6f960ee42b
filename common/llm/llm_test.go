package llm_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/openai/openai-go"

	"rankwise.app/analyst/common/llm"
)

var _ = Describe("New", func() {
	It("requires an API key", func() {
		_, err := llm.New(llm.Config{Provider: llm.ProviderOpenAI})
		Expect(err).To(MatchError(ContainSubstring("API key")))
	})

	It("rejects unknown providers", func() {
		_, err := llm.New(llm.Config{Provider: "mystery", APIKey: "k"})
		Expect(err).To(MatchError(ContainSubstring("mystery")))
	})

	DescribeTable("defaults the model per provider",
		func(provider, model, expected string) {
			c, err := llm.New(llm.Config{Provider: provider, APIKey: "k", Model: model})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Model()).To(Equal(expected))
		},
		Entry("openai default", llm.ProviderOpenAI, "", "gpt-4o-mini"),
		Entry("empty provider is openai", "", "", "gpt-4o-mini"),
		Entry("anthropic default", llm.ProviderAnthropic, "", "claude-sonnet-4-5-20250929"),
		Entry("explicit model kept", llm.ProviderAnthropic, "claude-haiku-4-5", "claude-haiku-4-5"),
	)
})

var _ = Describe("GenerateSchema", func() {
	type reply struct {
		Technical []string `json:"technical"`
	}

	It("inlines properties", func() {
		text := llm.SchemaText(llm.GenerateSchema[reply]())
		Expect(text).To(ContainSubstring(`"technical"`))
		Expect(text).NotTo(ContainSubstring(`"$ref"`))
	})

	It("renders nil as empty", func() {
		Expect(llm.SchemaText(nil)).To(BeEmpty())
	})
})

var _ = Describe("IsRetryable", func() {
	ctx := context.Background()

	It("is false for nil", func() {
		Expect(llm.IsRetryable(ctx, nil)).To(BeFalse())
	})

	It("is false for context errors", func() {
		Expect(llm.IsRetryable(ctx, context.Canceled)).To(BeFalse())
		Expect(llm.IsRetryable(ctx, fmt.Errorf("call: %w", context.DeadlineExceeded))).To(BeFalse())
	})

	It("is true for transport errors", func() {
		Expect(llm.IsRetryable(ctx, errors.New("connection reset by peer"))).To(BeTrue())
	})

	DescribeTable("classifies API status codes",
		func(status int, expected bool) {
			Expect(llm.IsRetryable(ctx, &openai.Error{StatusCode: status})).To(Equal(expected))
		},
		Entry("rate limited", 429, true),
		Entry("server error", 503, true),
		Entry("bad request", 400, false),
		Entry("unauthorized", 401, false),
	)
})

var _ = Describe("Temp", func() {
	It("returns a pointer to the value", func() {
		Expect(*llm.Temp(0.7)).To(Equal(0.7))
	})
})
