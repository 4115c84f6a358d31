// Package seal encrypts message payloads with a passphrase before they are
// hidden in a PNG chunk.
//
// Sealed layout:
//
//	magic "pmS1" | salt (16) | nonce (24) | XChaCha20-Poly1305 ciphertext
//
// The key is derived with Argon2id. Callers pass the chunk type as
// additional data so a sealed payload cannot be moved to another tag.
package seal

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

var magic = []byte("pmS1")

const (
	saltSize  = 16
	nonceSize = chacha20poly1305.NonceSizeX
	keySize   = chacha20poly1305.KeySize

	headerSize = 4 + saltSize + nonceSize
)

var (
	ErrNotSealed       = errors.New("seal: payload is not sealed")
	ErrDecrypt         = errors.New("seal: wrong passphrase or corrupted payload")
	ErrEmptyPassphrase = errors.New("seal: empty passphrase")
)

// kdfParams are the Argon2id cost parameters.
type kdfParams struct {
	time    uint32
	memory  uint32 // KiB
	threads uint8
}

var params = kdfParams{time: 1, memory: 64 * 1024, threads: 4}

// randReader is replaced in tests.
var randReader io.Reader = rand.Reader

// Seal encrypts plaintext under passphrase, authenticating aad.
func Seal(passphrase, aad, plaintext []byte) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, ErrEmptyPassphrase
	}
	out := make([]byte, headerSize, headerSize+len(plaintext)+chacha20poly1305.Overhead)
	copy(out, magic)
	salt := out[4 : 4+saltSize]
	nonce := out[4+saltSize : headerSize]
	if _, err := io.ReadFull(randReader, out[4:headerSize]); err != nil {
		return nil, fmt.Errorf("seal: read random: %w", err)
	}

	aead, err := chacha20poly1305.NewX(deriveKey(passphrase, salt))
	if err != nil {
		return nil, err
	}
	return aead.Seal(out, nonce, plaintext, aad), nil
}

// Open decrypts a payload produced by Seal.
func Open(passphrase, aad, sealed []byte) ([]byte, error) {
	if !IsSealed(sealed) {
		return nil, ErrNotSealed
	}
	if len(passphrase) == 0 {
		return nil, ErrEmptyPassphrase
	}
	salt := sealed[4 : 4+saltSize]
	nonce := sealed[4+saltSize : headerSize]

	aead, err := chacha20poly1305.NewX(deriveKey(passphrase, salt))
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, nonce, sealed[headerSize:], aad)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plain, nil
}

// IsSealed reports whether b carries the sealed header and room for a tag.
func IsSealed(b []byte) bool {
	return len(b) >= headerSize+chacha20poly1305.Overhead && bytes.HasPrefix(b, magic)
}

func deriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, params.time, params.memory, params.threads, keySize)
}
