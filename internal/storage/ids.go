package storage

import (
	"encoding/hex"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// NewID returns a fresh 128-bit opaque identifier in its canonical
// 36-character hyphenated form.
func NewID() string {
	return uuid.New().String()
}

// ContentHash returns a content-addressed digest of file content, used to
// short-circuit re-writing unchanged IndexedFile rows on re-indexing.
func ContentHash(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// fastHash is a non-cryptographic hex digest of s, not for content
// addressing. Nothing in this module calls it.
func fastHash(s string) string {
	return strconv.FormatUint(xxhash.Sum64String(s), 16)
}
