package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
)

const (
	// OpaqueTokenSize is the number of random bytes behind every token and session value.
	OpaqueTokenSize = 32

	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// NewOpaqueToken returns a base64url (no padding) encoding of size random bytes.
func NewOpaqueToken(size int) (string, error) {
	if size < 16 {
		return "", errors.New("opaque token too short")
	}
	raw := make([]byte, size)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// NewCode returns a short human-typeable code drawn from an uppercase
// alphanumeric alphabet without the ambiguous 0/O and 1/I characters.
func NewCode(length int) (string, error) {
	if length < 4 || length > 12 {
		return "", errors.New("invalid code length")
	}

	var b strings.Builder
	b.Grow(length)

	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// LookupHash is the hex SHA-256 of value. Stores index tokens and sessions by
// this hash so a leaked table never yields usable credentials.
func LookupHash(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
