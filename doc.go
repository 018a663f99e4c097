// Package goAccount provides the account core of a web application:
// registration, email verification, password login with an optional
// remember-me token, autologin, logout, and code-guarded password reset.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goAccount is the public surface. It exposes [Engine], [Builder], [Config],
// the error taxonomy in errors.go, and value types ([LoginResult],
// [AutologinResult], [MetricsSnapshot]). Persistence is reached only through
// the store package contracts; rate limiting, audit dispatch and crypto
// helpers live under internal/.
//
// # Credentials
//
// Sessions are short-lived and meant to travel in a request header. Remember
// tokens are long-lived and meant for a persistent cookie. Both are opaque
// random strings; stores keep only their SHA-256 lookup hash. A user holds at
// most one session and one remember token at a time; every login or autologin
// replaces both inside one transaction.
//
// # Expiry
//
// Tokens and sessions expire by comparison at read time. Nothing is written
// when they lapse. Cleanup of old rows is left to [store.Purger].
//
// # Side effects
//
// Verification and reset mail is queued only after the transaction commits
// and never fails the operation that triggered it.
package goAccount
