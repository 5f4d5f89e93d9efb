// Package webhook verifies inbound webhook deliveries signed with the
// standard id.timestamp.payload HMAC scheme used by svix-compatible senders.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Header names used by svix-compatible webhook senders.
const (
	HeaderID        = "svix-id"
	HeaderTimestamp = "svix-timestamp"
	HeaderSignature = "svix-signature"
)

const secretPrefix = "whsec_"

var (
	ErrMissingHeaders   = errors.New("webhook: missing signature headers")
	ErrInvalidTimestamp = errors.New("webhook: invalid timestamp")
	ErrExpiredTimestamp = errors.New("webhook: timestamp outside tolerance")
	ErrNoMatchingSig    = errors.New("webhook: no matching signature")
)

// Verifier checks webhook payload signatures against a shared secret.
type Verifier struct {
	key       []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier builds a verifier from the provider-issued secret. The secret
// may carry the whsec_ prefix, in which case the remainder is base64 decoded.
func NewVerifier(secret string, tolerance time.Duration) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("webhook: empty secret")
	}
	key := []byte(secret)
	if strings.HasPrefix(secret, secretPrefix) {
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, secretPrefix))
		if err != nil {
			return nil, fmt.Errorf("webhook: decode secret: %w", err)
		}
		key = decoded
	}
	if tolerance <= 0 {
		tolerance = 5 * time.Minute
	}
	return &Verifier{key: key, tolerance: tolerance, now: time.Now}, nil
}

// Verify checks the signature header against the payload. The payload must be
// the raw request body, byte for byte as received.
func (v *Verifier) Verify(id, timestamp, signature string, payload []byte) error {
	if id == "" || timestamp == "" || signature == "" {
		return ErrMissingHeaders
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrInvalidTimestamp
	}
	sent := time.Unix(ts, 0)
	if diff := v.now().Sub(sent); diff > v.tolerance || diff < -v.tolerance {
		return ErrExpiredTimestamp
	}

	expected := v.sign(id, timestamp, payload)

	// The header may carry several space-separated versioned signatures.
	for _, part := range strings.Fields(signature) {
		version, sig, found := strings.Cut(part, ",")
		if !found || version != "v1" {
			continue
		}
		provided, err := base64.StdEncoding.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(provided, expected) {
			return nil
		}
	}
	return ErrNoMatchingSig
}

// Sign computes the v1 signature for the given delivery. Exposed for senders
// and tests.
func (v *Verifier) Sign(id, timestamp string, payload []byte) string {
	return "v1," + base64.StdEncoding.EncodeToString(v.sign(id, timestamp, payload))
}

func (v *Verifier) sign(id, timestamp string, payload []byte) []byte {
	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(id))
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return mac.Sum(nil)
}
