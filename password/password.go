package password

import "errors"

var (
	// ErrUnsupportedHash is returned when a verifier does not recognise the hash format.
	ErrUnsupportedHash = errors.New("unsupported password hash")
	// ErrMalformedHash is returned for a hash in a recognised format whose
	// fields cannot be parsed.
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrPasswordTooShort is returned by Hash for passwords under the minimum length.
	ErrPasswordTooShort = errors.New("password too short")
	// ErrPasswordTooLong is returned when a password exceeds the configured maximum.
	ErrPasswordTooLong = errors.New("password too long")
)

// Verifier checks a plaintext password against a stored hash. A false result
// with a nil error means the password does not match.
type Verifier interface {
	Verify(password, encodedHash string) (bool, error)
}

// Hasher produces hashes for new credentials.
type Hasher interface {
	Verifier
	Hash(password string) (string, error)
	NeedsUpgrade(encodedHash string) (bool, error)
}
