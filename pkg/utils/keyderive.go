package utils

import (
	"crypto/rand"

	"golang.org/x/crypto/argon2"
)

const (
	SaltLength  = 16
	timeCost    = 3
	memoryCost  = 64 * 1024
	parallelism = 2
)

// NewSalt returns SaltLength random bytes
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// DeriveKey stretches a passphrase into an AES-256 key using Argon2id
func DeriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, timeCost, memoryCost, parallelism, KeySize)
}
