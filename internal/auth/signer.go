package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Signer produces deterministic request signatures from a shared secret.
// The secret is treated as raw bytes, never base64-decoded.
type Signer struct {
	secret []byte
}

// NewSigner constructs a signer for the given shared secret.
func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret}
}

// Configured reports whether a non-empty secret is present.
func (s *Signer) Configured() bool {
	return s != nil && len(s.secret) > 0
}

// Sign computes the lowercase hex HMAC-SHA256 of message.
func (s *Signer) Sign(message []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignRequest signs the exact concatenation of the raw body bytes and
// the raw timestamp header value, with no separator.
func (s *Signer) SignRequest(body []byte, timestamp string) string {
	message := make([]byte, 0, len(body)+len(timestamp))
	message = append(message, body...)
	message = append(message, timestamp...)
	return s.Sign(message)
}
