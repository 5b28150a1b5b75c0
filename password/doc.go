// Package password implements one-way credential hashing with Argon2id.
//
// The same hasher protects login passwords and two-factor recovery codes.
// Verification is deliberately infallible: malformed or absent stored hashes
// are reported as non-matches rather than errors.
package password
