// Package password hashes and verifies user credentials.
//
// New hashes are Argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Bcrypt hashes ($2a$, $2b$, $2y$) are accepted for verification so accounts
// imported from older systems keep working. [Multi] routes a stored hash to
// the verifier that recognises it and reports through NeedsUpgrade when the
// caller should re-hash after a successful login.
//
// The package never stores passwords and never logs plaintext or hashes.
package password
