// Package vault guards provider secrets at rest: API keys are encrypted with
// a process-wide AES-256 key and access passwords are stored as one-way hashes.
package vault

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"review_gateway/internal/apperr"
)

// KeySize is the required symmetric key length (AES-256).
const KeySize = 32

const legacyIVSize = aes.BlockSize

// ErrMissingKey is returned when no encryption key is configured.
var ErrMissingKey = apperr.Configuration(apperr.CodeEncryptionKeyMissing, "ENCRYPTION_KEY is not configured")

// Vault encrypts and decrypts API keys.
type Vault struct {
	key []byte
}

// New creates a vault for a raw 32-byte key. A nil key yields a vault whose
// operations fail with a configuration error.
func New(key []byte) (*Vault, error) {
	if key == nil {
		return &Vault{}, nil
	}
	if len(key) != KeySize {
		return nil, apperr.Configuration(apperr.CodeConfiguration,
			fmt.Sprintf("invalid encryption key size: must be %d bytes, got %d", KeySize, len(key)))
	}
	k := make([]byte, KeySize)
	copy(k, key)
	return &Vault{key: k}, nil
}

// NewFromHex creates a vault from a hex-encoded key as stored in ENCRYPTION_KEY.
func NewFromHex(encodedKey string) (*Vault, error) {
	encodedKey = strings.TrimSpace(encodedKey)
	if encodedKey == "" {
		return New(nil)
	}
	key, err := hex.DecodeString(encodedKey)
	if err != nil {
		return nil, apperr.Configuration(apperr.CodeConfiguration, "ENCRYPTION_KEY must be hex encoded")
	}
	return New(key)
}

// GenerateKey returns a fresh random key, hex encoded.
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("failed to generate random key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// Configured reports whether the vault has a key.
func (v *Vault) Configured() bool {
	return v != nil && len(v.key) == KeySize
}

// Encrypt seals plaintext with AES-256-GCM under a fresh nonce and returns
// "hex(nonce):hex(ciphertext)".
func (v *Vault) Encrypt(plaintext string) (string, error) {
	if !v.Configured() {
		return "", ErrMissingKey
	}

	gcm, err := v.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Records with a 16-byte IV are read as AES-256-CBC
// with PKCS#7 padding, the format of records written before GCM was adopted.
func (v *Vault) Decrypt(record string) (string, error) {
	if !v.Configured() {
		return "", ErrMissingKey
	}

	ivHex, bodyHex, ok := strings.Cut(record, ":")
	if !ok || ivHex == "" || bodyHex == "" || strings.Contains(bodyHex, ":") {
		return "", malformed("expected iv:ciphertext")
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return "", malformed("iv is not hex")
	}
	body, err := hex.DecodeString(bodyHex)
	if err != nil {
		return "", malformed("ciphertext is not hex")
	}

	gcm, err := v.gcm()
	if err != nil {
		return "", err
	}

	switch len(iv) {
	case gcm.NonceSize():
		plaintext, err := gcm.Open(nil, iv, body, nil)
		if err != nil {
			return "", decryptionFailed(err)
		}
		return string(plaintext), nil
	case legacyIVSize:
		return v.decryptCBC(iv, body)
	default:
		return "", malformed(fmt.Sprintf("unexpected iv length %d", len(iv)))
	}
}

func (v *Vault) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

func (v *Vault) decryptCBC(iv, body []byte) (string, error) {
	if len(body) == 0 || len(body)%aes.BlockSize != 0 {
		return "", decryptionFailed(errors.New("ciphertext is not a multiple of the block size"))
	}
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}
	out := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, body)

	pad := int(out[len(out)-1])
	if pad == 0 || pad > aes.BlockSize || pad > len(out) {
		return "", decryptionFailed(errors.New("bad padding"))
	}
	if !bytes.Equal(out[len(out)-pad:], bytes.Repeat([]byte{byte(pad)}, pad)) {
		return "", decryptionFailed(errors.New("bad padding"))
	}
	return string(out[:len(out)-pad]), nil
}

// encryptCBC writes the legacy record format. Only tests use it.
func (v *Vault) encryptCBC(plaintext string) (string, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", err
	}
	iv := make([]byte, legacyIVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}
	pad := aes.BlockSize - len(plaintext)%aes.BlockSize
	data := append([]byte(plaintext), bytes.Repeat([]byte{byte(pad)}, pad)...)
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, data)
	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(out), nil
}

// MaskAPIKey renders a key for display, e.g. "sk-a...wxyz".
func MaskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "***"
	}
	return apiKey[:4] + "..." + apiKey[len(apiKey)-4:]
}

func malformed(detail string) error {
	return apperr.Wrap(apperr.KindMalformedCiphertext, apperr.CodeMalformedCiphertext,
		"stored credential is malformed", errors.New(detail))
}

// The cipher error is kept in the chain; it never contains key material.
func decryptionFailed(cause error) error {
	return apperr.Wrap(apperr.KindDecryption, apperr.CodeDecryptionFailed,
		"stored credential could not be decrypted", cause)
}
