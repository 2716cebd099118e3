package webhook_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/flowsync-hq/flowsync/internal/webhook"
)

func signWith(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

var _ = Describe("Validator", func() {
	const secret = "it's a secret to everybody"
	payload := []byte(`{"action":"opened"}`)

	var validator *webhook.Validator

	BeforeEach(func() {
		validator = webhook.NewValidator(secret)
	})

	It("accepts a correctly signed payload", func() {
		Expect(validator.Verify(payload, signWith(secret, payload))).To(Succeed())
	})

	It("accepts its own Sign output", func() {
		Expect(validator.Verify(payload, validator.Sign(payload))).To(Succeed())
	})

	It("rejects a signature computed with a different secret", func() {
		err := validator.Verify(payload, signWith("wrong", payload))
		Expect(err).To(MatchError(webhook.ErrBadSignature))
	})

	It("rejects a signature over different bytes", func() {
		err := validator.Verify([]byte(`{"action":"closed"}`), signWith(secret, payload))
		Expect(err).To(MatchError(webhook.ErrBadSignature))
	})

	It("rejects a missing signature header", func() {
		Expect(validator.Verify(payload, "")).To(MatchError(webhook.ErrBadSignature))
	})

	It("rejects a signature without the sha256= prefix", func() {
		sig := signWith(secret, payload)
		Expect(validator.Verify(payload, sig[len("sha256="):])).To(MatchError(webhook.ErrBadSignature))
	})

	It("rejects a signature that is not hex", func() {
		Expect(validator.Verify(payload, "sha256=not-hex-at-all")).To(MatchError(webhook.ErrBadSignature))
	})

	Context("with no secret configured", func() {
		BeforeEach(func() {
			validator = webhook.NewValidator("")
		})

		It("is permissive and accepts unsigned payloads", func() {
			Expect(validator.Permissive()).To(BeTrue())
			Expect(validator.Verify(payload, "")).To(Succeed())
			Expect(validator.Verify(payload, "sha256=garbage")).To(Succeed())
		})
	})
})
