package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the JWS algorithm used for both token types.
type SigningMethod string

const (
	// MethodEd25519 signs with EdDSA over Ed25519 keys.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with HMAC-SHA256 over a shared secret.
	MethodHS256 SigningMethod = "hs256"
)

// TokenType is the value of the "type" claim.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

var (
	// ErrMalformed is returned when the token cannot be parsed or lacks required claims.
	ErrMalformed = errors.New("token malformed")
	// ErrBadSignature is returned when the signature or signing key does not verify.
	ErrBadSignature = errors.New("token signature invalid")
	// ErrExpired is returned when the current time is at or past the expiry.
	ErrExpired = errors.New("token expired")
	// ErrInvalidClaims is returned for issuer, audience, type or not-before violations.
	ErrInvalidClaims = errors.New("token claims invalid")
)

// Config holds codec settings. It is copied by NewManager.
type Config struct {
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	MaxFutureIAT  time.Duration
	KeyID         string
	VerifyKeys    map[string][]byte
}

// Claims is the decoded claim set of an access or refresh token.
type Claims struct {
	Type TokenType `json:"type"`
	jwt.RegisteredClaims
}

// Manager encodes and decodes signed, time-bounded tokens. Keys are parsed
// once by NewManager, so a Manager holds no mutable state and is safe for
// concurrent use.
type Manager struct {
	method   jwt.SigningMethod
	signKey  any
	verify   any
	keyring  map[string]any
	kid      string
	issuer   string
	audience string
	leeway   time.Duration
	maxIAT   time.Duration
	now      func() time.Time
}

// NewManager validates cfg and returns a codec reading time from now.
// A nil now falls back to time.Now.
func NewManager(cfg Config, now func() time.Time) (*Manager, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("leeway must be between 0 and 2m")
	}
	maxIAT := cfg.MaxFutureIAT
	if maxIAT == 0 {
		maxIAT = 10 * time.Minute
	}
	if maxIAT < 0 || maxIAT > 24*time.Hour {
		return nil, errors.New("MaxFutureIAT must be between 0 and 24h")
	}
	if now == nil {
		now = time.Now
	}

	m := &Manager{
		kid:      strings.TrimSpace(cfg.KeyID),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		leeway:   cfg.Leeway,
		maxIAT:   maxIAT,
		now:      now,
	}

	var toVerifyKey func([]byte) (any, error)
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < 32 {
			return nil, errors.New("hs256 requires a secret of at least 32 bytes")
		}
		m.method = jwt.SigningMethodHS256
		m.signKey = cfg.PrivateKey
		m.verify = cfg.PrivateKey
		toVerifyKey = func(b []byte) (any, error) { return b, nil }
	case MethodEd25519:
		m.method = jwt.SigningMethodEdDSA
		toVerifyKey = func(b []byte) (any, error) { return parseEdPublicKey(b) }
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			m.signKey = priv
		}
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			m.verify = pub
		}
		if m.verify == nil && len(cfg.VerifyKeys) == 0 {
			return nil, errors.New("ed25519 requires a public key or a verify key set")
		}
	default:
		return nil, fmt.Errorf("unsupported signing method %q", cfg.SigningMethod)
	}

	if len(cfg.VerifyKeys) > 0 {
		m.keyring = make(map[string]any, len(cfg.VerifyKeys))
		for kid, raw := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return nil, errors.New("verify key set contains an empty kid")
			}
			key, err := toVerifyKey(raw)
			if err != nil {
				return nil, fmt.Errorf("verify key %q: %w", kid, err)
			}
			m.keyring[kid] = key
		}
		if m.kid != "" {
			if _, ok := m.keyring[m.kid]; !ok {
				return nil, fmt.Errorf("KeyID %q is not in VerifyKeys", m.kid)
			}
		}
	}
	return m, nil
}

// Encode signs a token for subject with the given type and lifetime.
// An empty jti is replaced by a fresh UUIDv4.
func (m *Manager) Encode(subject string, typ TokenType, ttl time.Duration, jti string) (string, error) {
	switch {
	case subject == "":
		return "", errors.New("subject is required")
	case typ != TypeAccess && typ != TypeRefresh:
		return "", fmt.Errorf("unsupported token type %q", typ)
	case ttl <= 0:
		return "", errors.New("ttl must be positive")
	case m.signKey == nil:
		return "", errors.New("no signing key configured")
	}
	if jti == "" {
		jti = uuid.NewString()
	}

	issued := m.now()
	claims := Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        jti,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(ttl)),
		},
	}
	if m.audience != "" {
		claims.Audience = jwt.ClaimStrings{m.audience}
	}

	token := jwt.NewWithClaims(m.method, claims)
	if m.kid != "" {
		token.Header["kid"] = m.kid
	}
	return token.SignedString(m.signKey)
}

// Decode verifies the signature and expiry of raw and returns its claims.
// Errors are one of ErrMalformed, ErrBadSignature, ErrExpired or ErrInvalidClaims.
func (m *Manager) Decode(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(m.leeway),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}

	claims := &Claims{}
	token, err := jwt.NewParser(opts...).ParseWithClaims(raw, claims, m.lookupKey)
	if err != nil {
		return nil, classify(err)
	}
	if !token.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, ErrMalformed
	}
	if claims.Type != TypeAccess && claims.Type != TypeRefresh {
		return nil, ErrInvalidClaims
	}

	now := m.now()
	// exp == now counts as expired; the parser alone would accept it.
	if !now.Before(claims.ExpiresAt.Add(m.leeway)) {
		return nil, ErrExpired
	}
	if claims.IssuedAt != nil && claims.IssuedAt.After(now.Add(m.maxIAT)) {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

func (m *Manager) lookupKey(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if m.keyring != nil {
		if key, ok := m.keyring[kid]; ok {
			return key, nil
		}
		return nil, fmt.Errorf("unknown kid %q", kid)
	}
	if m.kid != "" && kid != m.kid {
		return nil, fmt.Errorf("unknown kid %q", kid)
	}
	return m.verify, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrBadSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return ErrInvalidClaims
	default:
		// Malformed input and missing required claims.
		return ErrMalformed
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, fmt.Errorf("parse ed25519 private key: %w", err)
	}
	priv, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not ed25519")
	}
	return priv, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, fmt.Errorf("parse ed25519 public key: %w", err)
	}
	pub, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("public key is not ed25519")
	}
	return pub, nil
}
