package apikey

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Mode separates live traffic from test traffic. The mode is embedded in
// the key itself so clients cannot accidentally mix environments.
type Mode string

const (
	ModeLive Mode = "live"
	ModeTest Mode = "test"
)

// Key is a stored API key record. The plaintext secret exists only at
// generation time; SecretHash is a bcrypt hash of the full presented key.
type Key struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	Prefix     string
	SecretHash []byte
	Mode       Mode
	ExpiresAt  *time.Time
	RevokedAt  *time.Time
	LastUsedAt *time.Time
	LastUsedIP string
	CreatedAt  time.Time
}

// Revoked reports whether the key has been explicitly revoked.
func (k *Key) Revoked() bool {
	return k.RevokedAt != nil && !k.RevokedAt.IsZero()
}

// Expired reports whether the key has passed its expiry, if one is set.
func (k *Key) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}

// Tenant is the minimal tenant projection needed for request-scoped
// authorization decisions.
type Tenant struct {
	ID        uuid.UUID
	Name      string
	Active    bool
	CreatedAt time.Time
}

// Storage loads key and tenant records from a data source.
// Implementations are expected to index keys by prefix.
type Storage interface {
	// ListKeysByPrefix returns all keys sharing the given prefix.
	// An empty slice (not an error) means no candidates.
	ListKeysByPrefix(ctx context.Context, prefix string) ([]Key, error)

	// GetTenant retrieves a tenant by id.
	// Returns ErrTenantNotFound if no tenant matches.
	GetTenant(ctx context.Context, id uuid.UUID) (*Tenant, error)

	// TouchKey records the last successful use of a key.
	TouchKey(ctx context.Context, keyID uuid.UUID, usedAt time.Time, ip string) error
}
