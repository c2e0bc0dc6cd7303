// Package apikey authenticates bearer API keys and resolves the owning
// tenant into the request scope.
//
// Keys have the form pf_<mode>_<secret>. Only a bcrypt hash of the full
// key is ever stored; lookups narrow candidates by an indexed prefix and
// verify the presented key against each candidate's hash with a slow,
// constant-time comparison.
//
// Resolution is optional: requests without an Authorization header pass
// through unauthenticated, and enforcement is left to route-level
// authorization. On success the middleware re-opens the reqctx scope
// extended with tenant and key identity, and records the key's last-used
// timestamp in a detached future that never blocks the response.
package apikey
