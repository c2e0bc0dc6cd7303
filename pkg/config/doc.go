// Package config loads per-package Config structs from environment
// variables (and an optional .env file in development).
//
// Each configuration type is parsed once per process and cached, so
// packages can call Load independently without re-reading the
// environment:
//
//	var cfg ratelimit.Config
//	if err := config.Load(&cfg); err != nil {
//	    // handle error
//	}
package config
