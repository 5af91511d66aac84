// Package backup encrypts destination profile snapshots before they
// leave the machine. Argon2id derives the key, AES-256-GCM seals the
// payload.
package backup

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/argon2"
)

// Envelope is the on-the-wire encrypted snapshot format
type Envelope struct {
	Version       string `json:"version"`
	Timestamp     string `json:"timestamp"`
	Salt          string `json:"salt"`           // base64-encoded
	Nonce         string `json:"nonce"`          // base64-encoded
	EncryptedData string `json:"encrypted_data"` // base64-encoded
}

// Argon2id parameters (memory-hard)
const (
	argon2Time    = 3
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32 // 256-bit key
	saltLen       = 32
	nonceLen      = 12 // GCM standard nonce
)

// deriveKey derives a 256-bit key from the passphrase using Argon2id
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey(
		[]byte(passphrase),
		salt,
		argon2Time,
		argon2Memory,
		argon2Threads,
		argon2KeyLen,
	)
}

// encrypt seals data with AES-256-GCM under a key derived from passphrase
func encrypt(data []byte, passphrase string) (*Envelope, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	key := deriveKey(passphrase, salt)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, data, nil)

	return &Envelope{
		Version:       "1.0",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Salt:          base64.StdEncoding.EncodeToString(salt),
		Nonce:         base64.StdEncoding.EncodeToString(nonce),
		EncryptedData: base64.StdEncoding.EncodeToString(ciphertext),
	}, nil
}

// decrypt opens an envelope, verifying the GCM tag
func decrypt(env *Envelope, passphrase string) ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(env.Salt)
	if err != nil {
		return nil, fmt.Errorf("invalid salt: %w", err)
	}

	key := deriveKey(passphrase, salt)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil {
		return nil, fmt.Errorf("invalid nonce: %w", err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(env.EncryptedData)
	if err != nil {
		return nil, fmt.Errorf("invalid encrypted data: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.New("decryption failed: wrong passphrase or corrupted data")
	}

	return plaintext, nil
}

// Seal marshals data to JSON and returns an encrypted envelope as JSON
func Seal(data interface{}, passphrase string) (string, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal data: %w", err)
	}

	env, err := encrypt(jsonData, passphrase)
	if err != nil {
		return "", fmt.Errorf("encryption failed: %w", err)
	}

	envJSON, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to create envelope JSON: %w", err)
	}

	return string(envJSON), nil
}

// Open decrypts an envelope produced by Seal into target
func Open(envJSON string, passphrase string, target interface{}) error {
	var env Envelope
	if err := json.Unmarshal([]byte(envJSON), &env); err != nil {
		return fmt.Errorf("invalid backup format: %w", err)
	}

	plaintext, err := decrypt(&env, passphrase)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(plaintext, target); err != nil {
		return fmt.Errorf("failed to parse backup data: %w", err)
	}

	return nil
}
