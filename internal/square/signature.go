package square

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

const SignatureHeader = "x-square-hmacsha256-signature"

// Sign returns base64(HMAC-SHA256(key, notificationURL + body)).
func Sign(key, notificationURL string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(notificationURL))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature compares in constant time. An empty key or
// signature never verifies.
func VerifyWebhookSignature(key, notificationURL string, body []byte, signature string) bool {
	if key == "" || signature == "" {
		return false
	}
	expected := Sign(key, notificationURL, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
