package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// NewsKeyPrefix namespaces news entries in a shared cache
const NewsKeyPrefix = "news:"

// Hash generates a SHA-256 hash of the input string
func Hash(input string) string {
	hasher := sha256.New()
	hasher.Write([]byte(input))
	return hex.EncodeToString(hasher.Sum(nil))
}

// NewsKey derives the cache key for a news text
func NewsKey(text string) string {
	return NewsKeyPrefix + Hash(text)
}
