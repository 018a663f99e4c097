package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTime        uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16

	// MinLength is the shortest password, in bytes, the hasher accepts.
	MinLength = 10
	// MaxLength bounds the work an attacker can force per hash.
	MaxLength = 1024

	phcID = "argon2id"
)

var (
	// ErrTooShort is returned by Hash for passwords under MinLength bytes.
	ErrTooShort = errors.New("password too short")
	// ErrTooLong is returned by Hash for passwords over MaxLength bytes.
	ErrTooLong = errors.New("password too long")
	// ErrMalformedHash is returned when a stored hash is not a valid argon2id PHC string.
	ErrMalformedHash = errors.New("malformed password hash")
)

// Hasher is the one-way verifiable hash the account engine depends on.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
	NeedsRehash(encoded string) (bool, error)
}

// Params are the argon2id cost parameters.
type Params struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams follow the RFC 9106 second recommended option.
func DefaultParams() Params {
	return Params{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Validate rejects parameters below the package floor.
func (p Params) Validate() error {
	switch {
	case p.Memory < minMemoryKB:
		return fmt.Errorf("password memory must be >= %d KiB", minMemoryKB)
	case p.Time < minTime:
		return errors.New("password time must be >= 1")
	case p.Parallelism < minParallelism:
		return errors.New("password parallelism must be >= 1")
	case p.SaltLength < minSaltLength:
		return fmt.Errorf("password salt length must be >= %d", minSaltLength)
	case p.KeyLength < minKeyLength:
		return fmt.Errorf("password key length must be >= %d", minKeyLength)
	}
	return nil
}

// Argon2id hashes passwords into PHC strings.
type Argon2id struct {
	params Params
}

var _ Hasher = (*Argon2id)(nil)

// NewArgon2id returns a hasher for p.
func NewArgon2id(p Params) (*Argon2id, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Argon2id{params: p}, nil
}

// Hash derives a fresh salted argon2id hash. Password bytes are used exactly as
// given, without Unicode normalization.
func (a *Argon2id) Hash(password string) (string, error) {
	if len(password) < MinLength {
		return "", ErrTooShort
	}
	if len(password) > MaxLength {
		return "", ErrTooLong
	}

	salt := make([]byte, a.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt, a.params.Time, a.params.Memory, a.params.Parallelism, a.params.KeyLength)
	return encodePHC(phc{
		params: Params{
			Memory:      a.params.Memory,
			Time:        a.params.Time,
			Parallelism: a.params.Parallelism,
		},
		salt: salt,
		key:  key,
	}), nil
}

// Verify reports whether password matches encoded. A malformed hash is an
// error, a mismatch is not.
func (a *Argon2id) Verify(password, encoded string) (bool, error) {
	h, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}
	if len(password) > MaxLength {
		return false, nil
	}

	key := argon2.IDKey([]byte(password), h.salt, h.params.Time, h.params.Memory, h.params.Parallelism, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(key, h.key) == 1, nil
}

// NeedsRehash reports whether encoded was produced with weaker parameters
// than the hasher's current ones.
func (a *Argon2id) NeedsRehash(encoded string) (bool, error) {
	h, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}
	return h.params.Memory < a.params.Memory ||
		h.params.Time < a.params.Time ||
		h.params.Parallelism < a.params.Parallelism ||
		uint32(len(h.key)) != a.params.KeyLength, nil
}

type phc struct {
	params Params
	salt   []byte
	key    []byte
}

func encodePHC(h phc) string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		phcID,
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(h.salt),
		base64.RawStdEncoding.EncodeToString(h.key),
	)
}

// decodePHC accepts both padded and unpadded base64 segments.
func decodePHC(encoded string) (phc, error) {
	var h phc

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != phcID {
		return h, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return h, ErrMalformedHash
	}

	var (
		memory, time uint32
		parallelism  uint8
	)
	if n, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &parallelism); err != nil || n != 3 {
		return h, ErrMalformedHash
	}
	if memory < minMemoryKB || time < minTime || parallelism < minParallelism {
		return h, ErrMalformedHash
	}
	h.params = Params{Memory: memory, Time: time, Parallelism: parallelism}

	salt, err := decodeSegment(parts[4])
	if err != nil || len(salt) < int(minSaltLength) {
		return h, ErrMalformedHash
	}
	key, err := decodeSegment(parts[5])
	if err != nil || len(key) == 0 {
		return h, ErrMalformedHash
	}
	h.salt = salt
	h.key = key
	return h, nil
}

func decodeSegment(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
