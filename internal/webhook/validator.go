// Package webhook verifies and classifies GitHub webhook deliveries.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrBadSignature is returned when a delivery's signature header is missing,
// malformed, or does not match the payload. It is the only webhook error that
// maps to a 401 response.
var ErrBadSignature = errors.New("webhook signature verification failed")

const signaturePrefix = "sha256="

// Validator checks the X-Hub-Signature-256 header GitHub attaches to each
// delivery. With no secret configured it accepts everything; the server logs
// that permissive mode is active at startup.
type Validator struct {
	secret []byte
}

// NewValidator returns a Validator for secret. An empty secret disables
// verification.
func NewValidator(secret string) *Validator {
	var key []byte
	if secret != "" {
		key = []byte(secret)
	}
	return &Validator{secret: key}
}

// Permissive reports whether verification is disabled.
func (v *Validator) Permissive() bool {
	return v.secret == nil
}

// Verify checks signature ("sha256=" + hex HMAC-SHA256 of payload) against
// payload using a constant-time comparison. It returns ErrBadSignature on any
// mismatch, and nil unconditionally when no secret is configured.
func (v *Validator) Verify(payload []byte, signature string) error {
	if v.secret == nil {
		return nil
	}

	encoded, ok := strings.CutPrefix(signature, signaturePrefix)
	if !ok {
		return ErrBadSignature
	}
	got, err := hex.DecodeString(encoded)
	if err != nil {
		return ErrBadSignature
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrBadSignature
	}
	return nil
}

// Sign computes the signature header value for payload. It exists for tests
// and for self-checks; production deliveries are signed by GitHub.
func (v *Validator) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}
