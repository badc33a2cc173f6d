package shared

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// IDLength is the length of server-generated token and check identifiers.
const IDLength = 20

// HashPassword returns the hex HMAC-SHA256 digest of the trimmed password,
// keyed with the server secret. The secret acts as a single global salt;
// an empty password hashes to "".
func HashPassword(secret, password string) string {
	password = strings.TrimSpace(password)
	if password == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(password))
	return hex.EncodeToString(mac.Sum(nil))
}

// DigestEqual compares two password digests in constant time.
func DigestEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// RandomID returns an n-character identifier drawn uniformly from lowercase
// letters and digits.
func RandomID(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("invalid id length %d", n)
	}
	out := make([]byte, 0, n)
	buf := make([]byte, 1)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		// rejection sampling: 252 is the largest multiple of 36 below 256,
		// anything above it would skew the distribution
		if buf[0] >= 252 {
			continue
		}
		out = append(out, idAlphabet[int(buf[0])%len(idAlphabet)])
	}
	return string(out), nil
}
