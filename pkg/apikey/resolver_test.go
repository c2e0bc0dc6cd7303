package apikey_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payforge/payforge/pkg/apikey"
	"github.com/payforge/payforge/pkg/reqctx"
)

type fakeStorage struct {
	mu      sync.Mutex
	keys    map[string][]apikey.Key
	tenants map[uuid.UUID]*apikey.Tenant

	listErr  error
	touchErr error

	touched   []uuid.UUID
	touchedIP string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		keys:    make(map[string][]apikey.Key),
		tenants: make(map[uuid.UUID]*apikey.Tenant),
	}
}

func (s *fakeStorage) addKey(k apikey.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[k.Prefix] = append(s.keys[k.Prefix], k)
}

func (s *fakeStorage) addTenant(t *apikey.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[t.ID] = t
}

func (s *fakeStorage) ListKeysByPrefix(ctx context.Context, prefix string) ([]apikey.Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.keys[prefix], nil
}

func (s *fakeStorage) GetTenant(ctx context.Context, id uuid.UUID) (*apikey.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, apikey.ErrTenantNotFound
	}
	return t, nil
}

func (s *fakeStorage) TouchKey(ctx context.Context, keyID uuid.UUID, usedAt time.Time, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.touchErr != nil {
		return s.touchErr
	}
	s.touched = append(s.touched, keyID)
	s.touchedIP = ip
	return nil
}

func (s *fakeStorage) touchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.touched)
}

// seedKey generates a key for an active tenant and registers both.
func seedKey(t *testing.T, storage *fakeStorage, mode apikey.Mode) (string, apikey.Key, *apikey.Tenant) {
	t.Helper()

	tenant := &apikey.Tenant{
		ID:        uuid.New(),
		Name:      "acme",
		Active:    true,
		CreatedAt: time.Now(),
	}
	raw, key, err := apikey.Generate(tenant.ID, mode)
	require.NoError(t, err)

	storage.addTenant(tenant)
	storage.addKey(key)
	return raw, key, tenant
}

func TestResolverAuthenticate(t *testing.T) {
	t.Parallel()

	t.Run("accepts a valid key", func(t *testing.T) {
		t.Parallel()

		storage := newFakeStorage()
		raw, seeded, tenant := seedKey(t, storage, apikey.ModeLive)

		resolver, err := apikey.NewResolver(storage)
		require.NoError(t, err)

		key, got, err := resolver.Authenticate(context.Background(), raw)
		require.NoError(t, err)
		assert.Equal(t, seeded.ID, key.ID)
		assert.Equal(t, tenant.ID, got.ID)

		require.Eventually(t, func() bool {
			return storage.touchCount() == 1
		}, time.Second, 10*time.Millisecond, "last-used touch never landed")
	})

	t.Run("records the client ip on touch", func(t *testing.T) {
		t.Parallel()

		storage := newFakeStorage()
		raw, _, _ := seedKey(t, storage, apikey.ModeLive)

		resolver, err := apikey.NewResolver(storage)
		require.NoError(t, err)

		ctx := reqctx.WithContext(context.Background(), reqctx.RequestContext{
			IPAddress: "203.0.113.7",
		})

		_, _, err = resolver.Authenticate(ctx, raw)
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			storage.mu.Lock()
			defer storage.mu.Unlock()
			return storage.touchedIP == "203.0.113.7"
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("rejects malformed keys before storage", func(t *testing.T) {
		t.Parallel()

		storage := newFakeStorage()
		storage.listErr = errors.New("storage must not be reached")

		resolver, err := apikey.NewResolver(storage)
		require.NoError(t, err)

		_, _, err = resolver.Authenticate(context.Background(), "garbage")
		assert.ErrorIs(t, err, apikey.ErrInvalidKeyFormat)
	})

	t.Run("rejects unknown keys", func(t *testing.T) {
		t.Parallel()

		storage := newFakeStorage()
		resolver, err := apikey.NewResolver(storage)
		require.NoError(t, err)

		_, _, err = resolver.Authenticate(context.Background(), "pf_live_nosuchsecretvalue")
		assert.ErrorIs(t, err, apikey.ErrKeyNotFound)
	})

	t.Run("rejects a wrong secret sharing a prefix", func(t *testing.T) {
		t.Parallel()

		storage := newFakeStorage()
		raw, _, _ := seedKey(t, storage, apikey.ModeLive)

		resolver, err := apikey.NewResolver(storage)
		require.NoError(t, err)

		repl := "A"
		if raw[len(raw)-1] == 'A' {
			repl = "B"
		}
		forged := raw[:len(raw)-1] + repl

		_, _, err = resolver.Authenticate(context.Background(), forged)
		assert.ErrorIs(t, err, apikey.ErrKeyNotFound)
	})

	t.Run("rejects revoked keys", func(t *testing.T) {
		t.Parallel()

		storage := newFakeStorage()
		tenant := &apikey.Tenant{ID: uuid.New(), Active: true}
		raw, key, err := apikey.Generate(tenant.ID, apikey.ModeLive)
		require.NoError(t, err)

		revoked := time.Now()
		key.RevokedAt = &revoked
		storage.addTenant(tenant)
		storage.addKey(key)

		resolver, err := apikey.NewResolver(storage)
		require.NoError(t, err)

		_, _, err = resolver.Authenticate(context.Background(), raw)
		assert.ErrorIs(t, err, apikey.ErrKeyRevoked)
		assert.ErrorIs(t, err, apikey.ErrUnauthenticated)
	})

	t.Run("rejects expired keys", func(t *testing.T) {
		t.Parallel()

		storage := newFakeStorage()
		tenant := &apikey.Tenant{ID: uuid.New(), Active: true}
		raw, key, err := apikey.Generate(tenant.ID, apikey.ModeLive)
		require.NoError(t, err)

		expiry := time.Now().Add(time.Hour)
		key.ExpiresAt = &expiry
		storage.addTenant(tenant)
		storage.addKey(key)

		resolver, err := apikey.NewResolver(storage,
			apikey.WithClock(func() time.Time { return time.Now().Add(2 * time.Hour) }))
		require.NoError(t, err)

		_, _, err = resolver.Authenticate(context.Background(), raw)
		assert.ErrorIs(t, err, apikey.ErrKeyExpired)
	})

	t.Run("rejects inactive tenants as unauthorized", func(t *testing.T) {
		t.Parallel()

		storage := newFakeStorage()
		tenant := &apikey.Tenant{ID: uuid.New(), Active: false}
		raw, key, err := apikey.Generate(tenant.ID, apikey.ModeLive)
		require.NoError(t, err)

		storage.addTenant(tenant)
		storage.addKey(key)

		resolver, err := apikey.NewResolver(storage)
		require.NoError(t, err)

		_, _, err = resolver.Authenticate(context.Background(), raw)
		assert.ErrorIs(t, err, apikey.ErrTenantInactive)
		assert.ErrorIs(t, err, apikey.ErrUnauthorized)
		assert.NotErrorIs(t, err, apikey.ErrUnauthenticated)
	})

	t.Run("orphaned keys report not found", func(t *testing.T) {
		t.Parallel()

		storage := newFakeStorage()
		raw, key, err := apikey.Generate(uuid.New(), apikey.ModeLive)
		require.NoError(t, err)
		storage.addKey(key)

		resolver, err := apikey.NewResolver(storage)
		require.NoError(t, err)

		_, _, err = resolver.Authenticate(context.Background(), raw)
		assert.ErrorIs(t, err, apikey.ErrKeyNotFound)
	})

	t.Run("touch failure never surfaces", func(t *testing.T) {
		t.Parallel()

		storage := newFakeStorage()
		raw, _, _ := seedKey(t, storage, apikey.ModeLive)
		storage.touchErr = errors.New("write failed")

		resolver, err := apikey.NewResolver(storage)
		require.NoError(t, err)

		_, _, err = resolver.Authenticate(context.Background(), raw)
		assert.NoError(t, err)
	})

	t.Run("requires storage", func(t *testing.T) {
		t.Parallel()

		_, err := apikey.NewResolver(nil)
		assert.Error(t, err)
	})
}
