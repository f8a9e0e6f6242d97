// Package encryption seals session snapshots with AES-256-GCM before they
// reach the cache.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// Encryptor seals and opens opaque values. Ciphertexts are base64 strings.
type Encryptor interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(ciphertext string) ([]byte, error)
	EncryptString(plaintext string) (string, error)
	DecryptString(ciphertext string) (string, error)
}

// New returns an AES encryptor for key, or a NoOpEncryptor when key is empty.
func New(key string) (Encryptor, error) {
	if key == "" {
		return NewNoOpEncryptor(), nil
	}
	return NewAESEncryptor(key)
}

// AESEncryptor implements Encryptor using AES-256-GCM. The nonce is
// prepended to each ciphertext.
type AESEncryptor struct {
	gcm cipher.AEAD
}

// NewAESEncryptor creates an encryptor from a 32-byte key given as base64,
// hex or raw text.
func NewAESEncryptor(key string) (*AESEncryptor, error) {
	keyBytes, err := decodeKey(key)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &AESEncryptor{gcm: gcm}, nil
}

func decodeKey(key string) ([]byte, error) {
	if decoded, err := base64.StdEncoding.DecodeString(key); err == nil && len(decoded) == KeySize {
		return decoded, nil
	}
	if decoded, err := hex.DecodeString(key); err == nil && len(decoded) == KeySize {
		return decoded, nil
	}
	if len(key) == KeySize {
		return []byte(key), nil
	}
	return nil, fmt.Errorf("encryption key must be %d bytes (raw, hex or base64)", KeySize)
}

// Encrypt seals plaintext.
func (e *AESEncryptor) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := e.gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt.
func (e *AESEncryptor) Decrypt(ciphertext string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	nonceSize := e.gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	plaintext, err := e.gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}

// EncryptString seals a string.
func (e *AESEncryptor) EncryptString(plaintext string) (string, error) {
	return e.Encrypt([]byte(plaintext))
}

// DecryptString opens a sealed string.
func (e *AESEncryptor) DecryptString(ciphertext string) (string, error) {
	plaintext, err := e.Decrypt(ciphertext)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// GenerateKey returns a new random base64-encoded key.
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// NoOpEncryptor only base64-encodes. Used when no key is configured.
type NoOpEncryptor struct{}

// NewNoOpEncryptor creates a NoOpEncryptor.
func NewNoOpEncryptor() *NoOpEncryptor {
	return &NoOpEncryptor{}
}

// Encrypt base64-encodes plaintext.
func (e *NoOpEncryptor) Encrypt(plaintext []byte) (string, error) {
	return base64.StdEncoding.EncodeToString(plaintext), nil
}

// Decrypt base64-decodes ciphertext.
func (e *NoOpEncryptor) Decrypt(ciphertext string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(ciphertext)
}

// EncryptString base64-encodes a string.
func (e *NoOpEncryptor) EncryptString(plaintext string) (string, error) {
	return e.Encrypt([]byte(plaintext))
}

// DecryptString base64-decodes a string.
func (e *NoOpEncryptor) DecryptString(ciphertext string) (string, error) {
	plaintext, err := e.Decrypt(ciphertext)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
