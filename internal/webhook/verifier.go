package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

const signaturePrefix = "sha256="

// Canonicalize re-encodes a JSON document with object keys sorted at
// every level. The output matches JSON.stringify of the parsed document:
// numbers are IEEE 754 doubles in their shortest form, and U+2028 and
// U+2029 are written raw.
func Canonicalize(body []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode body: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("failed to decode body: trailing data")
	}

	// encoding/json writes map keys in sorted order.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode body: %w", err)
	}
	return unescapeLineSeparators(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

var (
	escapedLineSeparator      = []byte(`\u2028`)
	escapedParagraphSeparator = []byte(`\u2029`)
)

// unescapeLineSeparators rewrites the \u2028 and \u2029 escapes of
// encoding/json as raw UTF-8. Escaped backslashes are skipped as pairs, so
// a literal backslash followed by "u2028" is left alone.
func unescapeLineSeparators(b []byte) []byte {
	if !bytes.Contains(b, escapedLineSeparator) && !bytes.Contains(b, escapedParagraphSeparator) {
		return b
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' || i+1 >= len(b) {
			out = append(out, b[i])
			continue
		}
		rest := b[i:]
		switch {
		case bytes.HasPrefix(rest, escapedLineSeparator):
			out = append(out, "\u2028"...)
			i += len(escapedLineSeparator) - 1
		case bytes.HasPrefix(rest, escapedParagraphSeparator):
			out = append(out, "\u2029"...)
			i += len(escapedParagraphSeparator) - 1
		default:
			out = append(out, b[i], b[i+1])
			i++
		}
	}
	return out
}

// Sign returns the hex HMAC-SHA256 of the canonical body, prefixed with
// "{timestamp}:" when a timestamp is given.
func Sign(secret string, body []byte, timestamp string) (string, error) {
	canonical, err := Canonicalize(body)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, []byte(secret))
	if timestamp != "" {
		mac.Write([]byte(timestamp))
		mac.Write([]byte(":"))
	}
	mac.Write(canonical)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

type Verifier struct {
	secret           string
	requireSignature bool
}

// NewVerifier returns a Verifier for the shared secret. Unless
// requireSignature is set, deliveries are accepted unchecked when either
// the secret or the signature is missing.
func NewVerifier(secret string, requireSignature bool) *Verifier {
	return &Verifier{
		secret:           secret,
		requireSignature: requireSignature,
	}
}

// Verify checks signature against body. checked reports whether a check
// actually took place.
func (v *Verifier) Verify(body []byte, signature, timestamp string) (checked bool, err error) {
	signature = strings.TrimSpace(signature)
	if signature == "" || v.secret == "" {
		if v.requireSignature {
			return false, ErrMissingSignature
		}
		return false, nil
	}

	expected, err := Sign(v.secret, body, timestamp)
	if err != nil {
		return true, fmt.Errorf("%w: %w", ErrSignatureMismatch, err)
	}
	provided := strings.TrimPrefix(signature, signaturePrefix)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(provided))) {
		return true, ErrSignatureMismatch
	}
	return true, nil
}

// SecretConfigured reports whether deliveries can be checked at all.
func (v *Verifier) SecretConfigured() bool {
	return v.secret != ""
}
