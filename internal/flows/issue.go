package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/refresh"
	"github.com/MrEthical07/authcore/session"
)

// SessionCreator is the store capability needed to persist a new session.
type SessionCreator interface {
	Create(ctx context.Context, params session.CreateParams) (*session.Session, error)
}

// IssueDeps mints an access/refresh pair and persists the refresh session.
type IssueDeps struct {
	Now         func() time.Time
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	EncodeToken func(subject string, typ jwt.TokenType, ttl time.Duration, jti string) (string, error)
	NewJTI      func() string
	Sessions    SessionCreator
}

// IssuedPair is a freshly minted token pair and its backing session.
type IssuedPair struct {
	AccessToken  string
	RefreshToken string
	Session      *session.Session
}

// IssuePair encodes both tokens and stores an Active session holding only the
// refresh token fingerprint. userAgent and ip are stored as metadata.
func IssuePair(ctx context.Context, deps IssueDeps, userID, userAgent, ip string) (IssuedPair, error) {
	now := deps.Now()
	jti := deps.NewJTI()

	access, err := deps.EncodeToken(userID, jwt.TypeAccess, deps.AccessTTL, "")
	if err != nil {
		return IssuedPair{}, err
	}
	refreshToken, err := deps.EncodeToken(userID, jwt.TypeRefresh, deps.RefreshTTL, jti)
	if err != nil {
		return IssuedPair{}, err
	}

	sess, err := deps.Sessions.Create(ctx, session.CreateParams{
		UserID:      userID,
		JTI:         jti,
		Fingerprint: refresh.Fingerprint(refreshToken),
		ExpiresAt:   now.Add(deps.RefreshTTL),
		UserAgent:   userAgent,
		IP:          ip,
		CreatedAt:   now,
	})
	if err != nil {
		return IssuedPair{}, err
	}

	return IssuedPair{
		AccessToken:  access,
		RefreshToken: refreshToken,
		Session:      sess,
	}, nil
}
