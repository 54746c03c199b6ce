package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB   uint32 = 8 * 1024
	minSaltLength uint32 = 16
	minKeyLength  uint32 = 16
	minPassBytes         = 10

	argon2Prefix = "$argon2id$"

	// DefaultMaxPasswordBytes applies when Config.MaxPasswordBytes is zero.
	DefaultMaxPasswordBytes = 1024
)

var b64 = base64.StdEncoding

// Config holds Argon2id cost parameters. Memory is in KiB.
type Config struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
}

// DefaultConfig returns the parameters used for new hashes.
func DefaultConfig() Config {
	return Config{
		Memory:           64 * 1024,
		Time:             3,
		Parallelism:      2,
		SaltLength:       16,
		KeyLength:        32,
		MaxPasswordBytes: DefaultMaxPasswordBytes,
	}
}

func (c Config) validate() error {
	switch {
	case c.Memory < minMemoryKB:
		return fmt.Errorf("argon2 memory must be >= %d KiB", minMemoryKB)
	case c.Time < 1:
		return errors.New("argon2 time must be >= 1")
	case c.Parallelism < 1:
		return errors.New("argon2 parallelism must be >= 1")
	case c.SaltLength < minSaltLength:
		return fmt.Errorf("argon2 salt length must be >= %d", minSaltLength)
	case c.KeyLength < minKeyLength:
		return fmt.Errorf("argon2 key length must be >= %d", minKeyLength)
	case c.MaxPasswordBytes < minPassBytes:
		return fmt.Errorf("max password bytes must be >= %d", minPassBytes)
	}
	return nil
}

// Argon2 is the default Hasher. It is immutable and safe for concurrent use.
type Argon2 struct {
	config Config
}

// NewArgon2 validates cfg and returns a hasher.
func NewArgon2(cfg Config) (*Argon2, error) {
	if cfg.MaxPasswordBytes == 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Argon2{config: cfg}, nil
}

// Hash returns a PHC-encoded Argon2id hash with a random salt. Password bytes
// are used exactly as given, with no Unicode normalization.
func (a *Argon2) Hash(password string) (string, error) {
	if err := a.checkLength(password); err != nil {
		return "", err
	}

	h := phc{
		memory:      a.config.Memory,
		time:        a.config.Time,
		parallelism: a.config.Parallelism,
		salt:        make([]byte, a.config.SaltLength),
	}
	if _, err := rand.Read(h.salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	h.key = h.derive(password, a.config.KeyLength)
	return h.String(), nil
}

// Verify recomputes the key with the parameters stored in encodedHash and
// compares in constant time. Non-Argon2id hashes yield ErrUnsupportedHash.
func (a *Argon2) Verify(password string, encodedHash string) (bool, error) {
	if len(password) > a.config.MaxPasswordBytes {
		return false, ErrPasswordTooLong
	}
	h, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}
	got := h.derive(password, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(got, h.key) == 1, nil
}

// NeedsUpgrade reports whether encodedHash was produced with weaker
// parameters than the configured ones.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	h, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}
	weaker := h.memory < a.config.Memory ||
		h.time < a.config.Time ||
		h.parallelism < a.config.Parallelism ||
		uint32(len(h.key)) != a.config.KeyLength
	return weaker, nil
}

func (a *Argon2) checkLength(password string) error {
	switch {
	case len(password) < minPassBytes:
		return ErrPasswordTooShort
	case len(password) > a.config.MaxPasswordBytes:
		return ErrPasswordTooLong
	}
	return nil
}

// phc is a decoded $argon2id$v=19$m=..,t=..,p=..$salt$key string.
type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (h phc) derive(password string, keyLen uint32) []byte {
	return argon2.IDKey([]byte(password), h.salt, h.time, h.memory, h.parallelism, keyLen)
}

func (h phc) String() string {
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Prefix, argon2.Version, h.memory, h.time, h.parallelism,
		b64.EncodeToString(h.salt), b64.EncodeToString(h.key))
}

func parsePHC(encoded string) (phc, error) {
	rest, ok := strings.CutPrefix(encoded, argon2Prefix)
	if !ok {
		return phc{}, ErrUnsupportedHash
	}
	fields := strings.Split(rest, "$")
	if len(fields) != 4 {
		return phc{}, fmt.Errorf("%w: want 4 fields after algorithm, got %d", ErrMalformedHash, len(fields))
	}

	if fields[0] != "v="+strconv.Itoa(argon2.Version) {
		return phc{}, fmt.Errorf("%w: unsupported version %q", ErrMalformedHash, fields[0])
	}

	var h phc
	if err := h.parseParams(fields[1]); err != nil {
		return phc{}, err
	}

	var err error
	if h.salt, err = b64.DecodeString(fields[2]); err != nil || len(h.salt) < int(minSaltLength) {
		return phc{}, fmt.Errorf("%w: bad salt", ErrMalformedHash)
	}
	if h.key, err = b64.DecodeString(fields[3]); err != nil || len(h.key) == 0 {
		return phc{}, fmt.Errorf("%w: bad key", ErrMalformedHash)
	}
	return h, nil
}

// parseParams reads "m=..,t=..,p=.." in any order; each key exactly once.
func (h *phc) parseParams(field string) error {
	seen := map[string]bool{}
	for _, pair := range strings.Split(field, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || seen[k] {
			return fmt.Errorf("%w: bad parameter %q", ErrMalformedHash, pair)
		}
		seen[k] = true

		bits := 32
		if k == "p" {
			bits = 8
		}
		n, err := strconv.ParseUint(v, 10, bits)
		if err != nil {
			return fmt.Errorf("%w: bad parameter %q", ErrMalformedHash, pair)
		}
		switch k {
		case "m":
			if n < uint64(minMemoryKB) {
				return fmt.Errorf("%w: memory below %d KiB", ErrMalformedHash, minMemoryKB)
			}
			h.memory = uint32(n)
		case "t":
			h.time = uint32(n)
		case "p":
			h.parallelism = uint8(n)
		default:
			return fmt.Errorf("%w: unknown parameter %q", ErrMalformedHash, k)
		}
	}
	if len(seen) != 3 || h.time == 0 || h.parallelism == 0 {
		return fmt.Errorf("%w: need m, t and p", ErrMalformedHash)
	}
	return nil
}
