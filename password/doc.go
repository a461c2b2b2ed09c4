// Package password implements password hashing and verification.
//
// # Schemes
//
// [Bcrypt] (cost 12 by default) is the scheme new hashes are written with.
// [Argon2] reads and writes PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// A [Chain] hashes with its first member and verifies with whichever member
// recognizes the stored encoding, so accounts migrated from another store
// keep working.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Whether an account may
// use a password at all (provider accounts have none) is decided by the
// Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other sessionauth package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
