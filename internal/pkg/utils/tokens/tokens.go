// Package tokens issues and parses prefixed bearer tokens.
//
// A token is "<prefix><secret>". The secret is never stored; callers persist the
// HMAC lookup key (for indexed retrieval) and an argon2 hash of it (see package secrets).
package tokens

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

const secretBytes = 24

// Issued is a freshly generated token. Raw is shown to the holder once.
type Issued struct {
	Raw    string
	Secret string
	Lookup string
}

// Generate creates a random token with the given prefix and its HMAC lookup key.
func Generate(prefix, pepper string) (Issued, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return Issued{}, err
	}
	secret := base64.RawURLEncoding.EncodeToString(buf)
	return Issued{
		Raw:    prefix + secret,
		Secret: secret,
		Lookup: HMAC256Hex(pepper, secret),
	}, nil
}

// ParseToken strips prefix from raw. ok is false when the prefix is missing or nothing follows it.
func ParseToken(raw, prefix string) (secret string, ok bool) {
	if !strings.HasPrefix(raw, prefix) {
		return "", false
	}
	secret = strings.TrimPrefix(raw, prefix)
	return secret, secret != ""
}

// FromBearer extracts the token from an Authorization header value.
func FromBearer(header string) (string, error) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", errors.New("missing bearer token")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("empty bearer token")
	}
	return token, nil
}

func HMAC256Hex(pepper, secret string) string {
	m := hmac.New(sha256.New, []byte(pepper))
	m.Write([]byte(secret))
	return hex.EncodeToString(m.Sum(nil)) // 64 hex chars
}

// Equal compares two tokens in constant time.
func Equal(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
