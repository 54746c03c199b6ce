package password

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt silently ignores input past 72 bytes; longer passwords are rejected instead.
const bcryptMaxPasswordBytes = 72

// Bcrypt verifies and produces bcrypt hashes.
type Bcrypt struct {
	cost int
}

// NewBcrypt returns a Bcrypt with cost clamped to the library bounds.
// A zero cost selects bcrypt.DefaultCost.
func NewBcrypt(cost int) *Bcrypt {
	switch {
	case cost == 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &Bcrypt{cost: cost}
}

func isBcrypt(encodedHash string) bool {
	return strings.HasPrefix(encodedHash, "$2a$") ||
		strings.HasPrefix(encodedHash, "$2b$") ||
		strings.HasPrefix(encodedHash, "$2y$")
}

func (b *Bcrypt) Hash(password string) (string, error) {
	if len(password) < minPassBytes {
		return "", ErrPasswordTooShort
	}
	if len(password) > bcryptMaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (b *Bcrypt) Verify(password, encodedHash string) (bool, error) {
	if !isBcrypt(encodedHash) {
		return false, ErrUnsupportedHash
	}
	if len(password) > bcryptMaxPasswordBytes {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

func (b *Bcrypt) NeedsUpgrade(encodedHash string) (bool, error) {
	if !isBcrypt(encodedHash) {
		return false, ErrUnsupportedHash
	}
	cost, err := bcrypt.Cost([]byte(encodedHash))
	if err != nil {
		return false, err
	}
	return cost < b.cost, nil
}
