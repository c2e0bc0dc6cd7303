package apikey

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStorage implements Storage over a pgx connection pool. The api_keys
// table indexes the prefix column so candidate lookups stay cheap.
type PgStorage struct {
	pool *pgxpool.Pool
}

// NewPgStorage creates a Postgres-backed key storage.
func NewPgStorage(pool *pgxpool.Pool) (*PgStorage, error) {
	if pool == nil {
		return nil, errors.New("apikey: connection pool is required")
	}
	return &PgStorage{pool: pool}, nil
}

func (s *PgStorage) ListKeysByPrefix(ctx context.Context, prefix string) ([]Key, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, prefix, secret_hash, mode,
		       expires_at, revoked_at, last_used_at, last_used_ip, created_at
		FROM api_keys
		WHERE prefix = $1`, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []Key
	for rows.Next() {
		var (
			k    Key
			mode string
			ip   *string
		)
		if err := rows.Scan(&k.ID, &k.TenantID, &k.Prefix, &k.SecretHash, &mode,
			&k.ExpiresAt, &k.RevokedAt, &k.LastUsedAt, &ip, &k.CreatedAt); err != nil {
			return nil, err
		}
		k.Mode = Mode(mode)
		if ip != nil {
			k.LastUsedIP = *ip
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *PgStorage) GetTenant(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	var t Tenant
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, active, created_at
		FROM tenants
		WHERE id = $1`, id).Scan(&t.ID, &t.Name, &t.Active, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *PgStorage) TouchKey(ctx context.Context, keyID uuid.UUID, usedAt time.Time, ip string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE api_keys
		SET last_used_at = $2, last_used_ip = $3
		WHERE id = $1`, keyID, usedAt, ip)
	return err
}
