// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package identity

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the length in bytes of the process-wide identity key.
const KeySize = chacha20poly1305.KeySize

var (
	ErrInvalidKey        = errors.New("invalid identity key")
	ErrInvalidCiphertext = errors.New("invalid identity ciphertext")
)

// GenerateKey creates a fresh random identity key
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate identity key: %w", err)
	}
	return key, nil
}

// EncodeKey converts a key to the text form stored in encryption_keys
func EncodeKey(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

// DecodeKey reverses EncodeKey and checks the key length
func DecodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidKey, len(key))
	}
	return key, nil
}

// Cipher encrypts voter identities for storage and derives the
// commitment hashes used for duplicate detection.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a Cipher around the loaded identity key
func NewCipher(key []byte) (*Cipher, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &Cipher{aead: aead}, nil
}

// EncryptIdentity seals a voter ID under a random nonce.
// The same input encrypts differently every time.
func (c *Cipher) EncryptIdentity(voterID uint64) (string, error) {
	plaintext := make([]byte, 8)
	binary.BigEndian.PutUint64(plaintext, voterID)

	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptIdentity recovers a voter ID. The bot never calls this;
// it exists for audits by whoever holds the key.
func (c *Cipher) DecryptIdentity(ciphertext string) (uint64, error) {
	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return 0, ErrInvalidCiphertext
	}
	if len(sealed) < c.aead.NonceSize()+c.aead.Overhead() {
		return 0, ErrInvalidCiphertext
	}

	nonce, box := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, box, nil)
	if err != nil || len(plaintext) != 8 {
		return 0, ErrInvalidCiphertext
	}
	return binary.BigEndian.Uint64(plaintext), nil
}

// CommitmentHash delegates to the package-level CommitmentHash
func (c *Cipher) CommitmentHash(pollID int64, voterID uint64) string {
	return CommitmentHash(pollID, voterID)
}

// CommitmentHash is the hex SHA-256 of "<poll_id>:<voter_id>".
// Deterministic, so it can serve as the vote_checks primary key.
func CommitmentHash(pollID int64, voterID uint64) string {
	data := strconv.FormatInt(pollID, 10) + ":" + strconv.FormatUint(voterID, 10)
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}
