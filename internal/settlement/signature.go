package settlement

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/gowebpki/jcs"
)

// Canonicalize transforms a JSON payload into RFC 8785 canonical form so
// hashing and signing are stable across serializers.
func Canonicalize(payload []byte) ([]byte, error) {
	canonical, err := jcs.Transform(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize payload: %w", err)
	}
	return canonical, nil
}

// HashPayload returns the hex SHA-256 digest of the canonicalized payload.
// Distribution records store this digest for downstream audit verification.
func HashPayload(payload []byte) (string, error) {
	canonical, err := Canonicalize(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// SignPayload generates an HMAC-SHA256 signature over a settlement intent.
//
// The signed string is "{timestamp}.{canonical_payload}": the timestamp lets
// the submitter reject replays, and canonicalization means any JSON-equivalent
// re-serialization of the payload verifies. The returned value is formatted as
// "sha256=<hex_signature>".
func SignPayload(secret string, timestamp int64, payload []byte) (string, error) {
	canonical, err := Canonicalize(payload)
	if err != nil {
		return "", err
	}

	h := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(h, "%d.%s", timestamp, canonical)
	return "sha256=" + hex.EncodeToString(h.Sum(nil)), nil
}

// VerifySignature checks a signature produced by SignPayload in constant time.
func VerifySignature(secret string, timestamp int64, payload []byte, signature string) (bool, error) {
	expected, err := SignPayload(secret, timestamp, payload)
	if err != nil {
		return false, err
	}
	return hmac.Equal([]byte(expected), []byte(signature)), nil
}
