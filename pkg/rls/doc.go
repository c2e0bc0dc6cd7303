// Package rls binds the resolved tenant id onto the exact database
// connection serving a request, activating Postgres row-level security
// policies that compare a tenant column against the session variable.
//
// RLS is the backstop for tenant isolation: even if application-level
// filtering is buggy, policies like
//
//	CREATE POLICY tenant_isolation ON payments
//	    USING (tenant_id = current_setting('app.current_tenant')::uuid);
//
// keep one tenant's rows invisible to another. The binding is
// connection-scoped, so under pooling it must be applied to the specific
// connection borrowed for the request's queries. WithTenantConn owns the
// acquire/bind/clear/release pairing so callers cannot bind the wrong
// connection.
package rls
