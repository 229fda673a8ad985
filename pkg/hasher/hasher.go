package hasher

import (
	"crypto/rand"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

const cost = 10

// HashKey returns the bcrypt hash stored in place of an API key.
func HashKey(key []byte) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword(key, cost)
	return string(bytes), err
}

func KeyMatches(key, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}

// GenerateKey returns length random bytes, URL-safe base64 encoded.
func GenerateKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}
