// Package httpapi serves the account engine over HTTP with gin.
//
// The session token travels in the X-Session-Token header and is returned in
// response bodies. The remember token lives only in an HttpOnly cookie.
// Engine errors map to statuses through [goAccount.Category]: validation 400,
// unauthenticated 401, not found 404, rate limited 429, everything else 500.
package httpapi
