package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// sign computes the spec.md §4.8 step 3 signature: hex-encoded
// HMAC-SHA256(body, secret).
func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks an X-Signature-256 header value ("sha256=<hex>")
// against body and secret using a constant-time comparison, per spec.md
// §4.8's verifySignature utility.
func VerifySignature(body []byte, secret, header string) bool {
	const prefix = "sha256="
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, prefix))
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(sign(body, secret))
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(got, want) == 1
}
