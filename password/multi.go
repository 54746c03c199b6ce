package password

import "errors"

// Multi hashes with a primary Hasher and verifies with whichever of the
// primary or legacy verifiers recognises the stored hash.
type Multi struct {
	primary Hasher
	legacy  []Verifier
}

// NewMulti returns a Multi. primary must not be nil.
func NewMulti(primary Hasher, legacy ...Verifier) *Multi {
	return &Multi{primary: primary, legacy: legacy}
}

func (m *Multi) Hash(password string) (string, error) {
	return m.primary.Hash(password)
}

func (m *Multi) Verify(password, encodedHash string) (bool, error) {
	ok, err := m.primary.Verify(password, encodedHash)
	if !errors.Is(err, ErrUnsupportedHash) {
		return ok, err
	}
	for _, v := range m.legacy {
		ok, err = v.Verify(password, encodedHash)
		if errors.Is(err, ErrUnsupportedHash) {
			continue
		}
		return ok, err
	}
	return false, ErrUnsupportedHash
}

// NeedsUpgrade is true for any hash the primary does not produce and for
// primary hashes made with weaker parameters.
func (m *Multi) NeedsUpgrade(encodedHash string) (bool, error) {
	needs, err := m.primary.NeedsUpgrade(encodedHash)
	if errors.Is(err, ErrUnsupportedHash) {
		return true, nil
	}
	return needs, err
}
