package apikey

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	keyDelimiter = "_"
	keyScheme    = "pf"

	// PrefixLength is the number of leading characters stored in clear to
	// narrow candidate lookups. Long enough to keep candidate sets tiny,
	// short enough to reveal nothing about the secret.
	PrefixLength = 12

	secretBytes = 24

	// DefaultBcryptCost trades ~50ms of verification per request for
	// resistance to offline cracking of a leaked hash table.
	DefaultBcryptCost = bcrypt.DefaultCost
)

// Generate creates a new API key for the tenant. The returned raw string
// is the only copy of the plaintext key; the Key record carries only the
// prefix and the bcrypt hash.
func Generate(tenantID uuid.UUID, mode Mode) (raw string, key Key, err error) {
	if mode != ModeLive && mode != ModeTest {
		return "", Key{}, fmt.Errorf("apikey: unknown mode %q", mode)
	}

	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", Key{}, fmt.Errorf("apikey: generate secret: %w", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(buf)

	raw = keyScheme + keyDelimiter + string(mode) + keyDelimiter + secret

	hash, err := bcrypt.GenerateFromPassword([]byte(raw), DefaultBcryptCost)
	if err != nil {
		return "", Key{}, fmt.Errorf("apikey: hash secret: %w", err)
	}

	key = Key{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Prefix:     raw[:PrefixLength],
		SecretHash: hash,
		Mode:       mode,
		CreatedAt:  time.Now(),
	}
	return raw, key, nil
}

// ParsePrefix extracts the lookup prefix and mode from a presented key.
// Returns ErrInvalidKeyFormat for anything that cannot be a valid key, so
// obviously-garbage input never reaches the storage layer.
func ParsePrefix(raw string) (prefix string, mode Mode, err error) {
	parts := strings.SplitN(raw, keyDelimiter, 3)
	if len(parts) != 3 || parts[0] != keyScheme || parts[2] == "" {
		return "", "", ErrInvalidKeyFormat
	}

	switch Mode(parts[1]) {
	case ModeLive, ModeTest:
	default:
		return "", "", ErrInvalidKeyFormat
	}

	if len(raw) < PrefixLength {
		return "", "", ErrInvalidKeyFormat
	}
	return raw[:PrefixLength], Mode(parts[1]), nil
}

// verifySecret compares the presented key against a stored hash.
// bcrypt is intentionally slow and constant-time for equal-cost inputs.
func verifySecret(hash []byte, raw string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(raw)) == nil
}
