// Package token generates cryptographically random identifiers used for
// session IDs. Characters are drawn from an alphanumeric alphabet with
// rejection sampling, so every character is uniformly distributed.
package token

import "crypto/rand"

// SessionIDLen yields ~286 bits of entropy over the standard alphabet.
const SessionIDLen = 48

// alphabet is the set of characters used in generated tokens. 62 characters,
// so byte values above the largest multiple of 62 below 256 are rejected to
// avoid modulo bias.
var alphabet = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789")

// New returns a random token of the given length.
func New(length int) string {
	if length <= 0 {
		return ""
	}

	clen := len(alphabet)
	maxAccepted := byte(256 - 256%clen - 1)

	out := make([]byte, 0, length)
	buf := make([]byte, length*2)

	for {
		if _, err := rand.Read(buf); err != nil {
			// The platform random source is broken; nothing sensible to
			// return.
			panic("token: reading random bytes: " + err.Error())
		}

		for _, b := range buf {
			if b > maxAccepted {
				continue
			}

			out = append(out, alphabet[int(b)%clen])
			if len(out) == length {
				return string(out)
			}
		}
	}
}

// NewSessionID returns a random session identifier.
func NewSessionID() string {
	return New(SessionIDLen)
}
