package id_test

import (
	"github.com/bwmarrin/snowflake"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"rankwise.app/analyst/common/id"
)

var _ = Describe("id", func() {
	It("generates increasing unique ids", func() {
		Expect(id.Init(id.NodeWorker)).To(Succeed())

		seen := make(map[int64]bool, 1000)
		prev := int64(0)
		for range 1000 {
			v := id.New()
			Expect(seen).NotTo(HaveKey(v))
			Expect(v).To(BeNumerically(">", prev))
			seen[v] = true
			prev = v
		}
	})

	It("embeds the node id", func() {
		Expect(id.Init(id.NodeServer)).To(Succeed())

		Expect(snowflake.ParseInt64(id.New()).Node()).To(Equal(id.NodeServer))
	})

	It("rejects node ids outside the snowflake range", func() {
		Expect(id.Init(1 << 10)).To(MatchError(ContainSubstring("creating snowflake node")))
	})
})
