package rls

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/payforge/payforge/pkg/reqctx"
)

// sessionVar is the Postgres setting RLS policies read via
// current_setting. The third set_config argument is false so the binding
// survives for the whole session, not just the current transaction.
const sessionVar = "app.current_tenant"

// Session is the minimal query surface the binder needs. Satisfied by
// *pgx.Conn, *pgxpool.Conn, and pgx.Tx.
type Session interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Binder applies and clears tenant bindings on database sessions.
type Binder struct {
	logger *slog.Logger
}

// Option configures a Binder.
type Option func(*Binder)

// WithLogger sets the logger for clear failures.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Binder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBinder creates a Binder.
func NewBinder(opts ...Option) *Binder {
	b := &Binder{logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bind makes tenantID visible to RLS policies on this exact session.
func (b *Binder) Bind(ctx context.Context, sess Session, tenantID uuid.UUID) error {
	if _, err := sess.Exec(ctx, "SELECT set_config($1, $2, false)", sessionVar, tenantID.String()); err != nil {
		return errors.Join(ErrBindFailed, err)
	}
	return nil
}

// Clear removes the binding. Best effort: in a session-per-request model
// the binding dies with the session anyway, but explicit clearing aids
// debugging and is harmless when redundant, so failures are logged only.
func (b *Binder) Clear(ctx context.Context, sess Session) {
	if _, err := sess.Exec(ctx, "SELECT set_config($1, '', false)", sessionVar); err != nil {
		b.logger.WarnContext(ctx, "failed to clear tenant session binding",
			slog.Any("error", err))
	}
}

// WithTenantConn acquires a connection from the pool, binds the tenant
// from the request scope onto it, runs fn with that same connection, then
// clears the binding and releases. The helper owns the pairing because
// binding a different pooled connection than the one the queries use
// silently breaks isolation.
func (b *Binder) WithTenantConn(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context, conn *pgxpool.Conn) error) error {
	if pool == nil {
		return ErrPoolRequired
	}

	tenantID, ok := reqctx.TenantIDFromContext(ctx)
	if !ok {
		return ErrNoTenant
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if err := b.Bind(ctx, conn, tenantID); err != nil {
		return err
	}
	// Clearing runs even when the request context is already canceled,
	// otherwise the pooled connection returns with a stale binding.
	defer b.Clear(context.WithoutCancel(ctx), conn)

	return fn(ctx, conn)
}
