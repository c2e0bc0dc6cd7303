// Package redis provides connection helpers for the shared Redis store
// backing the rate limiter and the cache layer.
//
// Connect retries the initial connection using the supplied configuration
// so deployments racing a Redis restart do not need external retry
// wrappers, and Healthcheck integrates the client into liveness probes.
//
// Configuration is described by the Config struct whose fields are
// populated from environment variables via github.com/caarlos0/env.
//
//	cfg := redis.Config{ConnectionURL: "redis://localhost:6379/0"}
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    // handle error, probably terminate the application
//	}
//	defer client.Close()
package redis
