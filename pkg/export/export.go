// SPDX-License-Identifier: Apache-2.0

// Package export encrypts and decrypts a saved-connections backup to a
// single portable file: Argon2id key derivation from a user password,
// AES-256-GCM authenticated encryption, behind a small fixed header that
// pins the file format and lets a reader reject anything else outright.
package export

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"os"
	"time"

	"golang.org/x/crypto/argon2"

	"github.com/tuskerhq/tusker-core/internal/dberr"
)

const (
	magic   = "TUSK"
	version = 1

	saltLen   = 32
	nonceLen  = 12
	headerLen = 4 + 1 + saltLen + nonceLen // 49 bytes

	argon2Time    = 3
	argon2Memory  = 65536
	argon2Threads = 4
	argon2KeyLen  = 32
)

// Project is one saved connection as it appears inside an export file.
// Unlike pkg/connection.Config, Password travels in the clear here because
// the whole payload is encrypted before it ever touches disk.
type Project struct {
	Name           string  `json:"name"`
	Color          string  `json:"color"`
	Host           string  `json:"host"`
	Port           uint16  `json:"port"`
	Database       string  `json:"database"`
	Username       string  `json:"username"`
	Password       string  `json:"password"`
	SSL            bool    `json:"ssl"`
	InstantCommit  bool    `json:"instant_commit"`
	ReadOnly       bool    `json:"read_only"`
	LastConnected  *string `json:"last_connected,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

// Payload is the plaintext JSON document encrypted inside an export file.
type Payload struct {
	Version    int       `json:"version"`
	ExportedAt string    `json:"exported_at"`
	Projects   []Project `json:"projects"`
}

func deriveKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
}

// EncryptAndWrite serializes projects into a Payload and writes an encrypted
// export file at filePath, readable only with password.
func EncryptAndWrite(projects []Project, password, filePath string) error {
	payload := Payload{
		Version:    1,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Projects:   projects,
	}

	plaintext, err := json.Marshal(payload)
	if err != nil {
		return dberr.Export(err, "failed to serialize export payload")
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return dberr.Export(err, "failed to generate salt")
	}
	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return dberr.Export(err, "failed to generate nonce")
	}

	key := deriveKey(password, salt)

	gcm, err := newGCM(key)
	if err != nil {
		return dberr.Export(err, "cipher init failed")
	}
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	data := make([]byte, 0, headerLen+len(ciphertext))
	data = append(data, magic...)
	data = append(data, version)
	data = append(data, salt...)
	data = append(data, nonce...)
	data = append(data, ciphertext...)

	if err := os.WriteFile(filePath, data, 0o600); err != nil {
		return dberr.Export(err, "failed to write file")
	}
	return nil
}

// ReadAndDecrypt reads and decrypts an export file written by
// EncryptAndWrite, failing closed on a wrong password, corrupted file, or
// unrecognized format.
func ReadAndDecrypt(filePath, password string) (*Payload, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, dberr.Export(err, "failed to read file")
	}

	if len(data) < headerLen {
		return nil, dberr.Export(nil, "too short")
	}

	if string(data[0:4]) != magic {
		return nil, dberr.Export(nil, "Not a valid Tusker export file")
	}

	fileVersion := data[4]
	if fileVersion != version {
		return nil, dberr.Export(nil, "unsupported file version: %d", fileVersion)
	}

	salt := data[5 : 5+saltLen]
	nonce := data[5+saltLen : headerLen]
	ciphertext := data[headerLen:]

	key := deriveKey(password, salt)

	gcm, err := newGCM(key)
	if err != nil {
		return nil, dberr.Export(err, "cipher init failed")
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, dberr.Export(nil, "Incorrect password or corrupted file")
	}

	var payload Payload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, dberr.Export(err, "failed to parse decrypted payload")
	}

	return &payload, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
