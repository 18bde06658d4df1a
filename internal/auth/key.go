// Package auth implements the VIIPER API authentication: a PBKDF2-derived
// key, an HMAC nonce handshake and chacha20poly1305 framing of the
// connection that follows.
package auth

import (
	"crypto/sha256"
	"errors"

	"golang.org/x/crypto/pbkdf2"
)

const (
	PBKDF2Iterations = 100000
	PBKDF2Salt       = "VIIPER-Key-v1"
	sessionContext   = "VIIPER-Session-v1"
)

// ErrEmptyPassword is returned when deriving a key from an empty password.
var ErrEmptyPassword = errors.New("password cannot be empty")

// DeriveKey stretches a password to a 32 byte key.
func DeriveKey(password string) ([]byte, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	return pbkdf2.Key([]byte(password), []byte(PBKDF2Salt), PBKDF2Iterations, 32, sha256.New), nil
}

// DeriveSessionKey mixes the handshake nonces into a per-connection key.
func DeriveSessionKey(key, serverNonce, clientNonce []byte) []byte {
	h := sha256.New()
	h.Write(key)
	h.Write(serverNonce)
	h.Write(clientNonce)
	h.Write([]byte(sessionContext))
	return h.Sum(nil)
}
