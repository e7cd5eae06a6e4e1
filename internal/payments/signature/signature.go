// Package signature verifies payment gateway webhook signatures.
//
// The gateway signs each delivery with a header of the form
//
//	t=<unix seconds>,v1=<hex hmac-sha256 of "<t>.<body>">
//
// The timestamp is part of the signed payload, so a replayed body cannot be
// re-stamped without invalidating the MAC.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Header is the HTTP header carrying the gateway signature.
const Header = "Gateway-Signature"

var (
	ErrMissing   = errors.New("signature header missing")
	ErrMalformed = errors.New("signature header malformed")
	ErrExpired   = errors.New("signature timestamp outside tolerance")
	ErrMismatch  = errors.New("signature mismatch")
)

// Verifier checks webhook signatures against a shared secret.
type Verifier struct {
	secret    []byte
	tolerance time.Duration
}

func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	return &Verifier{secret: []byte(secret), tolerance: tolerance}
}

// Verify checks the signature header against the raw request body. The caller
// supplies now so request-scoped time flows through.
func (v *Verifier) Verify(header string, body []byte, now time.Time) error {
	if header == "" {
		return ErrMissing
	}

	ts, sig, err := parseHeader(header)
	if err != nil {
		return err
	}

	if v.tolerance > 0 {
		age := now.Sub(time.Unix(ts, 0))
		if age > v.tolerance || age < -v.tolerance {
			return ErrExpired
		}
	}

	expected := v.Sign(ts, body)
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return ErrMismatch
	}
	return nil
}

// Sign computes the v1 signature for a timestamp and body. Exported for tests
// and for local tooling that replays captured events.
func (v *Verifier) Sign(ts int64, body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeader renders a complete header value for a timestamp and body.
func (v *Verifier) SignatureHeader(ts int64, body []byte) string {
	return fmt.Sprintf("t=%d,v1=%s", ts, v.Sign(ts, body))
}

func parseHeader(header string) (ts int64, sig string, err error) {
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return 0, "", ErrMalformed
		}
		switch key {
		case "t":
			ts, err = strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, "", ErrMalformed
			}
		case "v1":
			sig = value
		}
	}
	if ts == 0 || sig == "" {
		return 0, "", ErrMalformed
	}
	return ts, sig, nil
}
