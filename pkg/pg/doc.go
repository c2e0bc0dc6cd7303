// Package pg provides the pgx connection pool behind the RLS session
// binder, plus migration and error-classification helpers.
//
// Connect applies linear backoff between attempts so a fleet restarting
// alongside its database does not stampede it. Migrate runs goose
// migrations through the pool; RLS policies (CREATE POLICY ... USING
// tenant_id = current_setting('app.current_tenant')::uuid) ship as
// migrations like any other schema change.
//
// The Is*Error helpers classify common Postgres failures (not found,
// duplicate key, foreign key violation) so callers can branch without
// importing pgconn everywhere.
package pg
