package cache_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/flowsync-hq/flowsync/internal/cache"
	"github.com/flowsync-hq/flowsync/internal/store"
)

// fakeDurable is an in-memory store.CacheStore with switchable failures.
type fakeDurable struct {
	mu      sync.Mutex
	rows    map[string]store.CacheRow
	getErr  error
	setErr  error
	delErr  error
	getHits int
}

func newFakeDurable() *fakeDurable {
	return &fakeDurable{rows: make(map[string]store.CacheRow)}
}

func (f *fakeDurable) Get(_ context.Context, key string) (*store.CacheRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	row, ok := f.rows[key]
	if !ok || !time.Now().Before(row.ExpiresAt) {
		return nil, store.ErrNotFound
	}
	f.getHits++
	return &row, nil
}

func (f *fakeDurable) Upsert(_ context.Context, key string, data json.RawMessage, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.rows[key] = store.CacheRow{Key: key, Data: data, ExpiresAt: expiresAt}
	return nil
}

func (f *fakeDurable) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	delete(f.rows, key)
	return nil
}

func (f *fakeDurable) DeleteWhere(_ context.Context, pattern string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	for key := range f.rows {
		if cache.Match(key, pattern) {
			delete(f.rows, key)
		}
	}
	return nil
}

func (f *fakeDurable) DeleteExpired(_ context.Context, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, row := range f.rows {
		if !now.Before(row.ExpiresAt) {
			delete(f.rows, key)
		}
	}
	return nil
}

var _ = Describe("TieredCache", func() {
	var (
		ctx     context.Context
		durable *fakeDurable
		tiered  *cache.TieredCache
	)

	BeforeEach(func() {
		ctx = context.Background()
		durable = newFakeDurable()
		tiered = cache.New(durable, time.Minute)
	})

	Describe("Set and Get", func() {
		It("round-trips a value through both tiers", func() {
			Expect(tiered.Set(ctx, "prs:acme/web:open", map[string]int{"count": 3}, time.Minute)).To(Succeed())

			var got map[string]int
			Expect(tiered.GetInto(ctx, "prs:acme/web:open", &got)).To(BeTrue())
			Expect(got).To(HaveKeyWithValue("count", 3))
		})

		It("serves hot-tier hits without touching the durable store", func() {
			Expect(tiered.Set(ctx, "k", "v", time.Minute)).To(Succeed())

			_, ok := tiered.Get(ctx, "k")
			Expect(ok).To(BeTrue())
			Expect(durable.getHits).To(BeZero())
		})

		It("falls back to the durable store on a hot miss", func() {
			Expect(durable.Upsert(ctx, "k", json.RawMessage(`"durable"`), time.Now().Add(time.Minute))).To(Succeed())

			var got string
			Expect(tiered.GetInto(ctx, "k", &got)).To(BeTrue())
			Expect(got).To(Equal("durable"))
			Expect(durable.getHits).To(Equal(1))

			// Second read is promoted and served hot.
			Expect(tiered.GetInto(ctx, "k", &got)).To(BeTrue())
			Expect(durable.getHits).To(Equal(1))
		})

		It("misses once the entry's TTL has passed", func() {
			Expect(tiered.Set(ctx, "k", "v", 10*time.Millisecond)).To(Succeed())

			Eventually(func() bool {
				_, ok := tiered.Get(ctx, "k")
				return ok
			}, "200ms", "10ms").Should(BeFalse())
		})
	})

	Describe("failure behavior", func() {
		It("treats a durable read failure as a miss", func() {
			durable.getErr = errors.New("connection refused")

			_, ok := tiered.Get(ctx, "k")
			Expect(ok).To(BeFalse())
		})

		It("surfaces a durable write failure and admits nothing", func() {
			durable.setErr = errors.New("connection refused")

			Expect(tiered.Set(ctx, "k", "v", time.Minute)).NotTo(Succeed())

			durable.setErr = nil
			_, ok := tiered.Get(ctx, "k")
			Expect(ok).To(BeFalse())
		})

		It("surfaces a durable invalidation failure", func() {
			Expect(tiered.Set(ctx, "k", "v", time.Minute)).To(Succeed())
			durable.delErr = errors.New("connection refused")

			Expect(tiered.Clear(ctx, "*")).NotTo(Succeed())

			// The hot tier was still cleared.
			durable.getErr = errors.New("connection refused")
			_, ok := tiered.Get(ctx, "k")
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Clear", func() {
		BeforeEach(func() {
			Expect(tiered.Set(ctx, "prs:acme/web:open", 1, time.Minute)).To(Succeed())
			Expect(tiered.Set(ctx, "prs:acme/api:open", 2, time.Minute)).To(Succeed())
			Expect(tiered.Set(ctx, "issues:acme/web", 3, time.Minute)).To(Succeed())
		})

		It("removes only keys matching the pattern, in both tiers", func() {
			Expect(tiered.Clear(ctx, "prs:*acme/web*")).To(Succeed())

			_, ok := tiered.Get(ctx, "prs:acme/web:open")
			Expect(ok).To(BeFalse())
			Expect(durable.rows).NotTo(HaveKey("prs:acme/web:open"))

			var n int
			Expect(tiered.GetInto(ctx, "prs:acme/api:open", &n)).To(BeTrue())
			Expect(tiered.GetInto(ctx, "issues:acme/web", &n)).To(BeTrue())
		})

		It("removes everything for the full wildcard", func() {
			Expect(tiered.Clear(ctx, "*")).To(Succeed())

			Expect(durable.rows).To(BeEmpty())
			Expect(tiered.Stats().Entries).To(BeZero())
		})
	})

	Describe("Delete", func() {
		It("removes a single key from both tiers", func() {
			Expect(tiered.Set(ctx, "k", "v", time.Minute)).To(Succeed())
			Expect(tiered.Delete(ctx, "k")).To(Succeed())

			_, ok := tiered.Get(ctx, "k")
			Expect(ok).To(BeFalse())
			Expect(durable.rows).To(BeEmpty())
		})
	})

	Describe("SweepExpired", func() {
		It("drops expired entries and keeps live ones", func() {
			Expect(tiered.Set(ctx, "short", 1, 5*time.Millisecond)).To(Succeed())
			Expect(tiered.Set(ctx, "long", 2, time.Minute)).To(Succeed())

			time.Sleep(20 * time.Millisecond)
			Expect(tiered.SweepExpired(ctx)).To(Succeed())

			Expect(tiered.Stats().Entries).To(Equal(1))
			Expect(durable.rows).To(HaveKey("long"))
			Expect(durable.rows).NotTo(HaveKey("short"))
		})
	})

	Describe("hot TTL ceiling", func() {
		It("re-reads from the durable store after the hot TTL even for long-lived entries", func() {
			tiered = cache.New(durable, 10*time.Millisecond)
			Expect(tiered.Set(ctx, "k", "v", time.Hour)).To(Succeed())

			time.Sleep(30 * time.Millisecond)

			var got string
			Expect(tiered.GetInto(ctx, "k", &got)).To(BeTrue())
			Expect(durable.getHits).To(Equal(1))
		})
	})
})

var _ = Describe("Match", func() {
	DescribeTable("glob matching",
		func(key, pattern string, want bool) {
			Expect(cache.Match(key, pattern)).To(Equal(want))
		},
		Entry("full wildcard", "anything", "*", true),
		Entry("exact match", "prs:acme/web:open", "prs:acme/web:open", true),
		Entry("exact mismatch", "prs:acme/web:open", "prs:acme/web:closed", false),
		Entry("contains repository", "prs:acme/web:open", "prs:*acme/web*", true),
		Entry("different repository", "prs:acme/api:open", "prs:*acme/web*", false),
		Entry("repository substring overlap", "prs:acme/webapp:open", "prs:*acme/web*", true),
		Entry("prefix only", "prs:acme/web:open", "prs:*", true),
		Entry("wrong prefix", "issues:acme/web", "prs:*", false),
		Entry("suffix anchored", "prs:acme/web:open", "*:open", true),
		Entry("suffix mismatch", "prs:acme/web:closed", "*:open", false),
		Entry("empty key against wildcard", "", "*", true),
		Entry("multiple segments in order", "prs:acme/web:open", "prs:*web*open", true),
		Entry("segments out of order", "prs:open:web", "prs:*web*open", false),
	)
})
