// Package sshkeys validates the newline-delimited SSH public key list stored on a user profile.
package sshkeys

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/ssh"
)

// Tag is the validator tag registered by RegisterValidation.
const Tag = "sshkeys"

const MaxKeys = 5

var (
	ErrTooManyKeys = errors.New("You may only have up to five keys.")
	ErrInvalidList = errors.New("Enter a valid list of newline delimited SSH public keys.")
)

var keyLineRe = regexp.MustCompile(`^ssh-(\S+) (\S+)`)

// Validate checks a key list. An empty list is valid.
func Validate(value string) error {
	lines := Lines(value)
	if len(lines) > MaxKeys {
		return ErrTooManyKeys
	}
	for _, line := range lines {
		if !keyLineRe.MatchString(line) {
			return ErrInvalidList
		}
	}
	return nil
}

// Lines splits value on any line break. A single trailing line break does not start a new line.
func Lines(value string) []string {
	if value == "" {
		return nil
	}
	value = strings.ReplaceAll(value, "\r\n", "\n")
	value = strings.ReplaceAll(value, "\r", "\n")
	value = strings.TrimSuffix(value, "\n")
	return strings.Split(value, "\n")
}

type Key struct {
	Type        string `json:"type"`
	Comment     string `json:"comment,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	// Parsed is false when the line passes the format check but is not a decodable key.
	Parsed bool `json:"parsed"`
}

// Describe returns one Key per line of value.
func Describe(value string) []Key {
	lines := Lines(value)
	out := make([]Key, 0, len(lines))
	for _, line := range lines {
		k := Key{}
		if m := keyLineRe.FindStringSubmatch(line); m != nil {
			k.Type = "ssh-" + m[1]
		}
		pub, comment, _, _, err := ssh.ParseAuthorizedKey([]byte(line))
		if err == nil {
			k.Type = pub.Type()
			k.Comment = comment
			k.Fingerprint = ssh.FingerprintSHA256(pub)
			k.Parsed = true
		}
		out = append(out, k)
	}
	return out
}

// RegisterValidation adds the "sshkeys" tag to v.
func RegisterValidation(v *validator.Validate) error {
	return v.RegisterValidation(Tag, func(fl validator.FieldLevel) bool {
		return Validate(fl.Field().String()) == nil
	})
}
