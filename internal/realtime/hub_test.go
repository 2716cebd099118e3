package realtime_test

import (
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/flowsync-hq/flowsync/internal/realtime"
)

// recordingSub collects every message it accepts; full simulates a stuck
// connection whose buffer rejects new messages.
type recordingSub struct {
	mu       sync.Mutex
	received []realtime.Message
	full     bool
}

func (s *recordingSub) Send(msg realtime.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return false
	}
	s.received = append(s.received, msg)
	return true
}

func (s *recordingSub) messages() []realtime.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]realtime.Message(nil), s.received...)
}

var _ = Describe("Hub", func() {
	var (
		hub  *realtime.Hub
		alfa *recordingSub
		beta *recordingSub
	)

	BeforeEach(func() {
		hub = realtime.NewHub()
		alfa = &recordingSub{}
		beta = &recordingSub{}
	})

	It("delivers only to subscribers of the topic", func() {
		hub.Subscribe(alfa, realtime.RepoTopic("acme/web"))
		hub.Subscribe(beta, realtime.RepoTopic("acme/api"))

		n := hub.Broadcast(realtime.RepoTopic("acme/web"), "pr:updated", map[string]int{"number": 1})

		Expect(n).To(Equal(1))
		Expect(alfa.messages()).To(HaveLen(1))
		Expect(alfa.messages()[0].Event).To(Equal("pr:updated"))
		Expect(alfa.messages()[0].Timestamp).NotTo(BeZero())
		Expect(beta.messages()).To(BeEmpty())
	})

	It("is idempotent on repeated subscribes", func() {
		topic := realtime.RepoTopic("acme/web")
		hub.Subscribe(alfa, topic)
		hub.Subscribe(alfa, topic)

		Expect(hub.Broadcast(topic, "ping", nil)).To(Equal(1))
		Expect(alfa.messages()).To(HaveLen(1))
	})

	It("tolerates unsubscribing from a topic never joined", func() {
		hub.Unsubscribe(alfa, realtime.RepoTopic("acme/web"))
		Expect(hub.Stats().Topics).To(BeZero())
	})

	It("stops delivering after unsubscribe", func() {
		topic := realtime.RepoTopic("acme/web")
		hub.Subscribe(alfa, topic)
		hub.Unsubscribe(alfa, topic)

		Expect(hub.Broadcast(topic, "ping", nil)).To(BeZero())
		Expect(alfa.messages()).To(BeEmpty())
	})

	It("removes a disconnected subscriber from every topic", func() {
		hub.Subscribe(alfa, realtime.RepoTopic("acme/web"))
		hub.Subscribe(alfa, realtime.UserTopic("u1"))
		hub.Subscribe(alfa, realtime.GlobalTopic)

		hub.Disconnect(alfa)

		Expect(hub.Stats().Connections).To(BeZero())
		Expect(hub.Stats().Topics).To(BeZero())
		Expect(hub.Topics(alfa)).To(BeEmpty())
	})

	It("preserves per-topic order for each subscriber", func() {
		topic := realtime.RepoTopic("acme/web")
		hub.Subscribe(alfa, topic)

		for i := 0; i < 10; i++ {
			hub.Broadcast(topic, "seq", i)
		}

		got := alfa.messages()
		Expect(got).To(HaveLen(10))
		for i, msg := range got {
			Expect(msg.Data).To(Equal(i))
		}
	})

	It("drops for a full subscriber without affecting the others", func() {
		topic := realtime.RepoTopic("acme/web")
		alfa.full = true
		hub.Subscribe(alfa, topic)
		hub.Subscribe(beta, topic)

		n := hub.Broadcast(topic, "pr:updated", nil)

		Expect(n).To(Equal(1))
		Expect(alfa.messages()).To(BeEmpty())
		Expect(beta.messages()).To(HaveLen(1))
	})

	It("keeps BroadcastRepo on the repository topic only", func() {
		hub.Subscribe(alfa, realtime.RepoTopic("acme/web"))
		hub.Subscribe(beta, realtime.GlobalTopic)
		hub.Subscribe(beta, realtime.RepoTopic("acme/api"))

		hub.BroadcastRepo("acme/web", "webhook:pr", nil)

		Expect(alfa.messages()).To(HaveLen(1))
		Expect(alfa.messages()[0].Topic).To(Equal("repo:acme/web"))
		Expect(beta.messages()).To(BeEmpty())
	})

	It("reserves BroadcastGlobal for the global topic", func() {
		hub.Subscribe(alfa, realtime.GlobalTopic)
		hub.Subscribe(beta, realtime.RepoTopic("acme/web"))

		n := hub.BroadcastGlobal("system:message", map[string]string{"message": "maintenance"})

		Expect(n).To(Equal(1))
		Expect(alfa.messages()[0].Topic).To(Equal("global"))
		Expect(beta.messages()).To(BeEmpty())
	})

	It("handles concurrent subscribe, broadcast and disconnect", func() {
		topic := realtime.RepoTopic("acme/web")
		var wg sync.WaitGroup
		subs := make([]*recordingSub, 20)
		for i := range subs {
			subs[i] = &recordingSub{}
		}

		for i, sub := range subs {
			wg.Add(1)
			go func(i int, sub *recordingSub) {
				defer wg.Done()
				hub.Subscribe(sub, topic)
				hub.Broadcast(topic, "e", fmt.Sprintf("m%d", i))
				if i%2 == 0 {
					hub.Disconnect(sub)
				}
			}(i, sub)
		}
		wg.Wait()

		Expect(hub.Stats().Connections).To(Equal(10))
	})
})
