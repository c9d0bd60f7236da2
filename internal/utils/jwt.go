package utils // package utils provides helpers for session tokens and password hashing

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// RoleAuthenticated is the fixed role claim stamped into every session
// token. There is exactly one role in this system.
const RoleAuthenticated = "authenticated"

// SessionToken is a signed HS256 JWT along with its expiry. The same value
// is handed to clients as both access and refresh token; no separate
// refresh mechanism exists, so re-login is the only renewal path.
type SessionToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewSessionToken builds and signs an HS256 JWT for a profile. Claims
// follow the login contract: subject (sub) = profile id, role =
// authenticated, issued at (iat) = now, expiration (exp) = now + ttl.
func NewSessionToken(secret, profileID string, ttl time.Duration) (SessionToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":  profileID,
		"role": RoleAuthenticated,
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}

// ErrMalformedToken is returned when a token cannot be decoded or lacks a
// subject claim.
var ErrMalformedToken = errors.New("malformed token")

// DecodeSessionClaims extracts the subject and expiry from a token without
// verifying the signature. The client only needs sub and exp to derive its
// identity; the server verifies the signature on every request that
// carries the token.
func DecodeSessionClaims(token string) (sub string, exp time.Time, err error) {
	claims := jwt.MapClaims{}
	if _, _, err = jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", time.Time{}, err
	}
	sub, _ = claims["sub"].(string)
	if sub == "" {
		return "", time.Time{}, ErrMalformedToken
	}
	if v, ok := claims["exp"].(float64); ok {
		exp = time.Unix(int64(v), 0).UTC()
	}
	return sub, exp, nil
}
