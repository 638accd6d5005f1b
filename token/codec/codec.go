// Package codec provides authenticated encryption for opaque session token
// payloads. One key, derived once from the operator's secret, protects every
// token; secrecy rests entirely on that secret.
package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/scrypt"
)

const (
	keyLen = 32 // AES-256
	ivLen  = 12 // 96-bit GCM nonce
	tagLen = 16

	// keySalt is deliberately fixed: the same derived key is reused across
	// tokens, so the configured secret is the only secret input.
	keySalt = "attendance-token-key-v1"

	// associatedData binds ciphertexts to this protocol so they cannot be
	// replayed into another AES-GCM consumer sharing the key.
	associatedData = "campuskit/attendance-session-token"

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// ErrDecryptionFailed covers every decryption failure: malformed hex, wrong
// lengths, or an authentication tag that does not verify. Callers get no
// partial data and no distinction an attacker could use.
var ErrDecryptionFailed = errors.New("token decryption failed")

// ErrSecretRequired is returned when no encryption secret is configured.
// Issuing or validating tokens without an explicit secret is refused outright.
var ErrSecretRequired = errors.New("encryption secret is required")

// EncryptedToken is the hex wire form of one sealed payload.
type EncryptedToken struct {
	CiphertextHex string `json:"ciphertextHex"`
	IVHex         string `json:"ivHex"`
	AuthTagHex    string `json:"authTagHex"`
}

// Codec seals and opens token payloads with AES-256-GCM.
type Codec struct {
	aead cipher.AEAD
}

// New derives the AEAD key from secret via scrypt and returns a ready codec.
// An empty secret is a configuration error, never silently defaulted.
func New(secret string) (*Codec, error) {
	if secret == "" {
		return nil, ErrSecretRequired
	}

	key, err := scrypt.Key([]byte(secret), []byte(keySalt), scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return nil, errors.Wrap(err, "[codec.New] scrypt.Key")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "[codec.New] aes.NewCipher")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "[codec.New] cipher.NewGCM")
	}

	return &Codec{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random 96-bit IV. The IV must never
// repeat under this key; drawing it from crypto/rand for every call is what
// guarantees that.
func (c *Codec) Encrypt(plaintext []byte) (EncryptedToken, error) {
	iv := make([]byte, ivLen)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return EncryptedToken{}, errors.Wrap(err, "[Codec.Encrypt] rand.Read")
	}

	sealed := c.aead.Seal(nil, iv, plaintext, []byte(associatedData))
	ciphertext := sealed[:len(sealed)-tagLen]
	tag := sealed[len(sealed)-tagLen:]

	return EncryptedToken{
		CiphertextHex: hex.EncodeToString(ciphertext),
		IVHex:         hex.EncodeToString(iv),
		AuthTagHex:    hex.EncodeToString(tag),
	}, nil
}

// Decrypt opens a sealed token. Any failure returns ErrDecryptionFailed and
// no plaintext.
func (c *Codec) Decrypt(tok EncryptedToken) ([]byte, error) {
	ciphertext, err := hex.DecodeString(tok.CiphertextHex)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	iv, err := hex.DecodeString(tok.IVHex)
	if err != nil || len(iv) != ivLen {
		return nil, ErrDecryptionFailed
	}
	tag, err := hex.DecodeString(tok.AuthTagHex)
	if err != nil || len(tag) != tagLen {
		return nil, ErrDecryptionFailed
	}

	plaintext, err := c.aead.Open(nil, iv, append(ciphertext, tag...), []byte(associatedData))
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
