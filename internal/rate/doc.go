// Package rate provides the Redis fixed-window counter behind goAccount's
// rate limiting.
//
// # Window semantics
//
// A window starts on the first hit for a key: the counter is incremented and,
// only when it becomes 1, given a PEXPIRE of the window length. Both steps
// run in one Lua script so concurrent callers on the same key never race
// between the increment and the expiry.
//
// # What this package must NOT do
//
//   - Implement domain-specific policies (those live in internal/limiters).
//   - Be imported outside the goAccount module.
package rate
