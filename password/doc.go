// Package password implements password hashing and verification with argon2id.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2id.NeedsRehash] reports hashes produced with weaker parameters so the
// engine can re-hash on the next successful login.
//
// Password policy (which passwords are acceptable) belongs to the caller; this
// package only enforces the byte bounds it needs to bound hashing cost.
package password
