// Package fieldcrypt provides transparent encryption for sensitive string
// fields using AES-256-GCM authenticated encryption.
//
// Sealed values are stored as base64(nonce || ciphertext || tag) in ordinary
// text columns. Every Seal call draws a fresh 96-bit random nonce, so equal
// plaintexts never produce equal blobs. Open verifies the authentication tag
// and fails loudly on tamper, truncation, or a wrong key; it never returns
// altered or empty plaintext on failure.
package fieldcrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"github.com/crossmark-io/crossmark-api/pkg/config"
	appErrors "github.com/crossmark-io/crossmark-api/pkg/errors"
)

// NonceSize is the AES-GCM nonce length in bytes (96 bits).
const NonceSize = 12

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// kdfIterations follows the OWASP recommendation for PBKDF2-SHA-256.
const kdfIterations = 600000

// Codec seals and opens sensitive string values. It holds the process-wide
// cipher built from the master key injected at startup; the key itself is not
// retained after construction and there is no runtime rotation path.
type Codec struct {
	aead cipher.AEAD
}

// Sealable is implemented by records that own encrypted fields. Repositories
// call SealFields before writing a row and OpenFields after scanning one, so
// plaintext never crosses the persistence boundary.
type Sealable interface {
	SealFields(c *Codec) error
	OpenFields(c *Codec) error
}

// New builds a codec from validated key material. A raw key is used as-is;
// passphrase material is stretched with PBKDF2-SHA-256 first.
func New(cfg config.EncryptionConfig) (*Codec, error) {
	key := cfg.Key
	if len(key) == 0 {
		if cfg.Passphrase == "" || len(cfg.Salt) == 0 {
			return nil, appErrors.Clone(appErrors.ErrDecryption, "encryption key material is absent")
		}
		key = pbkdf2.Key([]byte(cfg.Passphrase), cfg.Salt, kdfIterations, KeySize, sha256.New)
	}
	if len(key) != KeySize {
		return nil, appErrors.Clone(appErrors.ErrDecryption, fmt.Sprintf("encryption key must be %d bytes", KeySize))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDecryption.Code, appErrors.ErrDecryption.Status, "init cipher")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDecryption.Code, appErrors.ErrDecryption.Status, "init gcm")
	}

	return &Codec{aead: aead}, nil
}

// Seal encrypts plaintext and returns the printable blob for storage.
func (c *Codec) Seal(plaintext string) (string, error) {
	if c == nil || c.aead == nil {
		return "", appErrors.Clone(appErrors.ErrDecryption, "encryption codec not initialized")
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrDecryption.Code, appErrors.ErrDecryption.Status, "generate nonce")
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a blob produced by Seal. Any malformed, truncated, or
// tampered input fails with DECRYPTION_ERROR.
func (c *Codec) Open(blob string) (string, error) {
	if c == nil || c.aead == nil {
		return "", appErrors.Clone(appErrors.ErrDecryption, "encryption codec not initialized")
	}

	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrDecryption.Code, appErrors.ErrDecryption.Status, "malformed ciphertext encoding")
	}
	if len(raw) < NonceSize {
		return "", appErrors.Clone(appErrors.ErrDecryption, "ciphertext too short")
	}

	nonce, ciphertext := raw[:NonceSize], raw[NonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrDecryption.Code, appErrors.ErrDecryption.Status, "authentication failed")
	}

	return string(plaintext), nil
}
