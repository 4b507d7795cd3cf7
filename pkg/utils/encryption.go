package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

var (
	ErrNoEncryptionKey  = errors.New("ENCRYPTION_KEY not set")
	ErrCiphertextShort  = errors.New("ciphertext too short")
	ErrInvalidKeyFormat = errors.New("ENCRYPTION_KEY must be base64-encoded")
	ErrInvalidKeyLength = errors.New("ENCRYPTION_KEY must decode to exactly 32 bytes (256 bits)")
)

// FieldCipher encrypts short personal fields (client email, phone) with
// AES-256-GCM. Output is base64(nonce || ciphertext).
type FieldCipher struct {
	gcm cipher.AEAD
}

// ParseEncryptionKey decodes a base64-encoded 32-byte key.
func ParseEncryptionKey(keyBase64 string) ([]byte, error) {
	if keyBase64 == "" {
		return nil, ErrNoEncryptionKey
	}
	keyBytes, err := base64.StdEncoding.DecodeString(keyBase64)
	if err != nil {
		return nil, ErrInvalidKeyFormat
	}
	if len(keyBytes) != 32 {
		return nil, ErrInvalidKeyLength
	}
	return keyBytes, nil
}

func NewFieldCipher(keyBase64 string) (*FieldCipher, error) {
	key, err := ParseEncryptionKey(keyBase64)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &FieldCipher{gcm: gcm}, nil
}

// Encrypt returns "" for "" so optional fields stay empty.
func (c *FieldCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	ciphertext := c.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (c *FieldCipher) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}
	nonceSize := c.gcm.NonceSize()
	if len(data) < nonceSize {
		return "", ErrCiphertextShort
	}
	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := c.gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
