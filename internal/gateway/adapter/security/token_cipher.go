package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

var (
	ErrCipherKeySize = errors.New("cipher key must be 32 bytes (64 hex characters)")
	ErrSealedInvalid = errors.New("sealed token is malformed or tampered with")
)

const nonceSize = 24

// TokenCipher seals the upstream bearer credential before it is written to
// the session store and opens it again for outbound calls. The credential
// exists in plaintext only inside a running gateway operation.
type TokenCipher struct {
	key [32]byte
}

// NewTokenCipher creates a cipher from a 64-character hex key.
func NewTokenCipher(hexKey string) (*TokenCipher, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil || len(raw) != 32 {
		return nil, ErrCipherKeySize
	}

	c := &TokenCipher{}
	copy(c.key[:], raw)
	return c, nil
}

// Seal encrypts a token. The random nonce is prepended to the box.
func (c *TokenCipher) Seal(token string) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, err
	}

	return secretbox.Seal(nonce[:], []byte(token), &nonce, &c.key), nil
}

// Open decrypts a sealed token.
func (c *TokenCipher) Open(sealed []byte) (string, error) {
	if len(sealed) < nonceSize {
		return "", ErrSealedInvalid
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])

	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &c.key)
	if !ok {
		return "", ErrSealedInvalid
	}

	return string(plain), nil
}
