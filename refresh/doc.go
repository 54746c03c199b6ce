// Package refresh derives the one-way fingerprint that a session store keeps in
// place of the refresh token itself.
//
// The fingerprint is the lowercase hex SHA-256 of the complete compact token
// string, so any change to header, payload or signature produces a different
// value. Comparison is constant time.
//
// # What this package must NOT do
//
//   - Access any store or perform I/O.
//   - Decode or verify tokens; that belongs to package jwt.
package refresh
