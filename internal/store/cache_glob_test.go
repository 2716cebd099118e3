package store

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("globToLike", func() {
	DescribeTable("translation",
		func(pattern, want string) {
			Expect(globToLike(pattern)).To(Equal(want))
		},
		Entry("wildcards become percent", "prs:*acme/web*", "prs:%acme/web%"),
		Entry("literal text passes through", "prs:acme/web:open", "prs:acme/web:open"),
		Entry("percent is escaped", "prs:100%*", `prs:100\%%`),
		Entry("underscore is escaped", "user_repos:*", `user\_repos:%`),
		Entry("backslash is escaped", `a\b*`, `a\\b%`),
	)
})

var _ = Describe("globToRedisMatch", func() {
	DescribeTable("translation",
		func(pattern, want string) {
			Expect(globToRedisMatch(pattern)).To(Equal(want))
		},
		Entry("star is kept as wildcard", "prs:*acme/web*", "prs:*acme/web*"),
		Entry("question mark is escaped", "prs:what?*", `prs:what\?*`),
		Entry("brackets are escaped", "k[1]*", `k\[1\]*`),
	)
})
