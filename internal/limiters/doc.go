// Package limiters provides domain-specific rate limit policies built on top
// of a keyed fixed-window counter (internal/rate in production).
//
// # Limiters
//
//   - [PasswordResetLimiter]: per-email throttle for reset requests, with an
//     optional per-IP throttle.
//
// All limiters are nil-safe: calling any method on a nil receiver returns nil.
//
// # What this package must NOT do
//
//   - Import goAccount or any sibling internal package.
//   - Make policy decisions beyond counting. The engine decides consequences.
package limiters
