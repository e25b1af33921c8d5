// Package token generates URL-safe random tokens for invitations and
// verification links.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// New returns a URL-safe random token with 32 bytes of entropy. A failed
// read from the system entropy source is unrecoverable, so it panics.
func New() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("token: entropy source unavailable: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
