// Package httpserver wraps http.Server with graceful shutdown, signal
// handling, and probe endpoints for the payment API daemon.
package httpserver
