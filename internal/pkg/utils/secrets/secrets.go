// Package secrets hashes bearer secrets into argon2id PHC strings.
package secrets

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	Time      = 2
	MemoryMB  = 16
	Threads   = 1
	KeyLen    = 32
	SaltBytes = 16
)

type params struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

func HashSecret(secret, pepper string) (string, error) {
	if secret == "" {
		return "", errors.New("empty secret")
	}
	salt := make([]byte, SaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	p := params{memory: MemoryMB * 1024, time: Time, threads: Threads, salt: salt}
	p.key = derive(secret, pepper, p, KeyLen)
	return p.encode(), nil
}

// VerifySecret reports whether secret+pepper matches phc. Malformed phc strings are errors.
func VerifySecret(secret, pepper, phc string) (bool, error) {
	p, err := decode(phc)
	if err != nil {
		return false, err
	}
	got := derive(secret, pepper, p, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(got, p.key) == 1, nil
}

func derive(secret, pepper string, p params, keyLen uint32) []byte {
	return argon2.IDKey([]byte(secret+pepper), p.salt, p.time, p.memory, p.threads, keyLen)
}

func (p params) encode() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.time, p.threads,
		base64.RawStdEncoding.EncodeToString(p.salt),
		base64.RawStdEncoding.EncodeToString(p.key),
	)
}

func decode(phc string) (params, error) {
	if !strings.HasPrefix(phc, "$argon2id$") {
		return params{}, errors.New("unsupported hash format")
	}
	parts := strings.Split(phc, "$")
	if len(parts) != 6 {
		return params{}, errors.New("invalid phc")
	}

	var p params
	var threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &threads); err != nil {
		return params{}, fmt.Errorf("invalid phc params: %w", err)
	}
	if threads == 0 || threads > 255 {
		return params{}, errors.New("invalid phc params: threads out of range")
	}
	p.threads = uint8(threads)

	var err error
	if p.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return params{}, fmt.Errorf("invalid phc salt: %w", err)
	}
	if p.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return params{}, fmt.Errorf("invalid phc key: %w", err)
	}
	if len(p.key) == 0 {
		return params{}, errors.New("invalid phc key: empty")
	}
	return p, nil
}
