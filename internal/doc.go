// Package internal holds helpers private to goAccount: opaque token and code
// generation, and the lookup hash stores use to index tokens and sessions.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - limiters: password-reset request policy
//   - logging: slog handler setup with trace correlation
//   - rate: Redis-backed fixed-window counters
package internal
