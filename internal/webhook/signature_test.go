package webhook

import (
	"encoding/base64"
	"errors"
	"strconv"
	"testing"
	"time"
)

const testSecret = "whsec_MfKQ9r8GKYqrTwjUPD8ILPZIo2LaLaSw"

func newTestVerifier(t *testing.T, at time.Time) *Verifier {
	t.Helper()
	v, err := NewVerifier(testSecret, 5*time.Minute)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	v.now = func() time.Time { return at }
	return v
}

func TestVerify_ValidSignature(t *testing.T) {
	now := time.Unix(1700000000, 0)
	v := newTestVerifier(t, now)

	payload := []byte(`{"type":"email.received"}`)
	id := "msg_1"
	ts := strconv.FormatInt(now.Unix(), 10)
	sig := v.Sign(id, ts, payload)

	if err := v.Verify(id, ts, sig, payload); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
}

func TestVerify_TamperedBody(t *testing.T) {
	now := time.Unix(1700000000, 0)
	v := newTestVerifier(t, now)

	id := "msg_1"
	ts := strconv.FormatInt(now.Unix(), 10)
	sig := v.Sign(id, ts, []byte(`{"type":"email.received"}`))

	err := v.Verify(id, ts, sig, []byte(`{"type":"email.received","data":{}}`))
	if !errors.Is(err, ErrNoMatchingSig) {
		t.Fatalf("expected ErrNoMatchingSig, got %v", err)
	}
}

func TestVerify_MissingHeaders(t *testing.T) {
	v := newTestVerifier(t, time.Now())

	cases := []struct {
		name              string
		id, ts, signature string
	}{
		{"no id", "", "123", "v1,abc"},
		{"no timestamp", "msg_1", "", "v1,abc"},
		{"no signature", "msg_1", "123", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := v.Verify(tc.id, tc.ts, tc.signature, nil); !errors.Is(err, ErrMissingHeaders) {
				t.Errorf("expected ErrMissingHeaders, got %v", err)
			}
		})
	}
}

func TestVerify_TimestampTolerance(t *testing.T) {
	now := time.Unix(1700000000, 0)
	v := newTestVerifier(t, now)
	payload := []byte(`{}`)

	t.Run("too old", func(t *testing.T) {
		ts := strconv.FormatInt(now.Add(-6*time.Minute).Unix(), 10)
		sig := v.Sign("msg_1", ts, payload)
		if err := v.Verify("msg_1", ts, sig, payload); !errors.Is(err, ErrExpiredTimestamp) {
			t.Errorf("expected ErrExpiredTimestamp, got %v", err)
		}
	})

	t.Run("within tolerance", func(t *testing.T) {
		ts := strconv.FormatInt(now.Add(-4*time.Minute).Unix(), 10)
		sig := v.Sign("msg_1", ts, payload)
		if err := v.Verify("msg_1", ts, sig, payload); err != nil {
			t.Errorf("expected valid, got %v", err)
		}
	})

	t.Run("garbage timestamp", func(t *testing.T) {
		if err := v.Verify("msg_1", "not-a-number", "v1,abc", payload); !errors.Is(err, ErrInvalidTimestamp) {
			t.Errorf("expected ErrInvalidTimestamp, got %v", err)
		}
	})
}

func TestVerify_MultipleSignatures(t *testing.T) {
	now := time.Unix(1700000000, 0)
	v := newTestVerifier(t, now)

	payload := []byte(`{"type":"email.received"}`)
	ts := strconv.FormatInt(now.Unix(), 10)
	good := v.Sign("msg_1", ts, payload)
	bogus := "v1," + base64.StdEncoding.EncodeToString([]byte("not a real signature"))

	// Senders rotating secrets send several signatures; one match suffices.
	if err := v.Verify("msg_1", ts, bogus+" "+good, payload); err != nil {
		t.Fatalf("expected one matching signature to pass, got %v", err)
	}
	if err := v.Verify("msg_1", ts, bogus, payload); !errors.Is(err, ErrNoMatchingSig) {
		t.Fatalf("expected ErrNoMatchingSig, got %v", err)
	}
}

func TestNewVerifier_Secrets(t *testing.T) {
	if _, err := NewVerifier("", time.Minute); err == nil {
		t.Error("expected error for empty secret")
	}
	if _, err := NewVerifier("whsec_%%%not-base64%%%", time.Minute); err == nil {
		t.Error("expected error for undecodable prefixed secret")
	}
	if _, err := NewVerifier("plain-bytes-secret", time.Minute); err != nil {
		t.Errorf("unprefixed secret should be accepted, got %v", err)
	}
}
