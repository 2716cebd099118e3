package webhook_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/flowsync-hq/flowsync/internal/webhook"
)

var _ = Describe("Classify", func() {
	It("classifies a pull_request delivery", func() {
		payload := []byte(`{
			"action": "opened",
			"repository": {"full_name": "acme/web"},
			"sender": {"login": "octocat", "id": 1},
			"pull_request": {
				"number": 42,
				"title": "Add rate limiting",
				"state": "open",
				"draft": false,
				"user": {"login": "octocat", "id": 1},
				"head": {"ref": "rate-limit", "sha": "abc123"},
				"base": {"ref": "main", "sha": "def456"}
			}
		}`)

		ev, err := webhook.Classify("pull_request", payload)
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Kind).To(Equal(webhook.KindPullRequest))
		Expect(ev.Action).To(Equal("opened"))
		Expect(ev.Repository).To(Equal("acme/web"))
		Expect(ev.PullRequest).NotTo(BeNil())
		Expect(ev.PullRequest.Number).To(Equal(42))
		Expect(ev.PullRequest.Head.Ref).To(Equal("rate-limit"))
		Expect(ev.Issue).To(BeNil())
	})

	It("classifies a pull_request_review delivery", func() {
		payload := []byte(`{
			"action": "submitted",
			"repository": {"full_name": "acme/web"},
			"pull_request": {"number": 42, "state": "open"},
			"review": {"state": "approved", "user": {"login": "reviewer"}}
		}`)

		ev, err := webhook.Classify("pull_request_review", payload)
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Kind).To(Equal(webhook.KindPullRequestReview))
		Expect(ev.Review.State).To(Equal("approved"))
		Expect(ev.PullRequest.Number).To(Equal(42))
	})

	It("classifies an issues delivery", func() {
		payload := []byte(`{
			"action": "labeled",
			"repository": {"full_name": "acme/api"},
			"issue": {"number": 7, "title": "Flaky test", "state": "open", "labels": [{"name": "bug"}]}
		}`)

		ev, err := webhook.Classify("issues", payload)
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Kind).To(Equal(webhook.KindIssues))
		Expect(ev.Issue.Number).To(Equal(7))
		Expect(ev.Issue.Labels).To(HaveLen(1))
	})

	It("classifies an issue_comment delivery, comment included", func() {
		payload := []byte(`{
			"action": "created",
			"repository": {"full_name": "acme/api"},
			"issue": {"number": 7, "state": "open"},
			"comment": {"body": "same here", "user": {"login": "someone"}}
		}`)

		ev, err := webhook.Classify("issue_comment", payload)
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Kind).To(Equal(webhook.KindIssueComment))
		Expect(ev.Comment.Body).To(Equal("same here"))
	})

	It("classifies a push delivery", func() {
		payload := []byte(`{
			"ref": "refs/heads/main",
			"before": "aaa",
			"after": "bbb",
			"repository": {"full_name": "acme/web"},
			"commits": [{"id": "bbb"}, {"id": "ccc"}]
		}`)

		ev, err := webhook.Classify("push", payload)
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Kind).To(Equal(webhook.KindPush))
		Expect(ev.Push.Ref).To(Equal("refs/heads/main"))
		Expect(ev.Push.Commits).To(Equal(2))
	})

	It("classifies a status delivery", func() {
		payload := []byte(`{
			"sha": "abc123",
			"state": "success",
			"context": "ci/build",
			"repository": {"full_name": "acme/web"}
		}`)

		ev, err := webhook.Classify("status", payload)
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Kind).To(Equal(webhook.KindStatus))
		Expect(ev.Status.State).To(Equal("success"))
	})

	It("marks unknown event names as unhandled without error", func() {
		ev, err := webhook.Classify("workflow_run", []byte(`{"action":"completed","repository":{"full_name":"acme/web"}}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Kind).To(Equal(webhook.KindUnhandled))
		Expect(ev.Name).To(Equal("workflow_run"))
		Expect(ev.Repository).To(Equal("acme/web"))
	})

	It("returns ErrMalformedPayload for invalid JSON", func() {
		_, err := webhook.Classify("pull_request", []byte(`{not json`))
		Expect(err).To(MatchError(webhook.ErrMalformedPayload))
	})

	It("classifies a pull_request delivery that lacks the pull_request object", func() {
		ev, err := webhook.Classify("pull_request", []byte(`{"action":"opened","repository":{"full_name":"acme/web"}}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Kind).To(Equal(webhook.KindPullRequest))
		Expect(ev.PullRequest).To(BeNil())
	})

	It("returns ErrMalformedPayload when the repository is missing", func() {
		_, err := webhook.Classify("issues", []byte(`{"action":"opened","issue":{"number":1}}`))
		Expect(err).To(MatchError(webhook.ErrMalformedPayload))
	})

	It("keeps the raw payload on the event", func() {
		payload := []byte(`{"action":"opened","repository":{"full_name":"acme/web"},"issue":{"number":1}}`)
		ev, err := webhook.Classify("issues", payload)
		Expect(err).NotTo(HaveOccurred())
		Expect([]byte(ev.Raw)).To(Equal(payload))
	})
})
