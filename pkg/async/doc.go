// Package async provides a supervised Future for fire-and-forget side
// effects that must not block request handling, such as recording an API
// key's last-used timestamp after the response has been sent.
//
// Unlike a bare goroutine, a Future carries its error back to a
// supervising caller, which can await it (with or without a timeout) and
// log failures from the right place.
package async
