package client

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/arasli/duet-chat/internal/utils"
	"github.com/arasli/duet-chat/pkg/apperr"
)

// Session owns the authenticated-identity lifecycle: deriving an identity
// from the stored token, the sign-up/sign-in exchanges and signing out.
type Session struct {
	svc    Service
	tokens *TokenStore

	mu       sync.Mutex
	identity *Identity

	flight singleflight.Group
}

func NewSession(svc Service, tokens *TokenStore) *Session {
	return &Session{svc: svc, tokens: tokens}
}

// Identity returns the current identity, or nil when signed out.
func (s *Session) Identity() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// DeriveIdentity reads the token store and derives the identity from the
// token's claims without verifying the signature (the server verifies on
// every subsequent request). An expired token is cleared and yields nil;
// a malformed one yields nil. Runs once at startup, local-only.
func (s *Session) DeriveIdentity() *Identity {
	token := s.tokens.Get()
	if token == "" {
		return s.setIdentity(nil)
	}
	sub, exp, err := utils.DecodeSessionClaims(token)
	if err != nil {
		return s.setIdentity(nil)
	}
	if !exp.IsZero() && exp.Before(time.Now()) {
		s.tokens.Clear()
		return s.setIdentity(nil)
	}
	return s.setIdentity(&Identity{ID: sub})
}

// SignIn exchanges credentials for a session token, persists it and
// updates the identity from its claims. Rapid duplicate submissions
// collapse into one in-flight exchange.
func (s *Session) SignIn(ctx context.Context, username, password string) error {
	_, err, _ := s.flight.Do("sign-in", func() (interface{}, error) {
		pair, err := s.svc.Login(ctx, strings.TrimSpace(username), password)
		if err != nil {
			return nil, err
		}
		if pair.AccessToken == "" {
			return nil, apperr.Unauthenticated("login failed")
		}
		sub, _, derr := utils.DecodeSessionClaims(pair.AccessToken)
		if derr != nil {
			return nil, apperr.Wrap(apperr.CodeUnavailable, "malformed login response", derr)
		}
		if err := s.tokens.Set(pair.AccessToken); err != nil {
			return nil, apperr.Wrap(apperr.CodeInternal, "persist token", err)
		}
		s.setIdentity(&Identity{ID: sub})
		return nil, nil
	})
	return err
}

// SignUp registers a new profile and then signs in (registration alone
// does not yield a token). When the username is already taken it falls
// back to signing in with the same credentials; if that also fails, the
// caller gets a single conflict-coded error distinguishing "taken" from
// other failures.
func (s *Session) SignUp(ctx context.Context, username, password string) error {
	_, err := s.svc.SignUp(ctx, strings.TrimSpace(username), password)
	if err != nil {
		if apperr.Is(err, apperr.CodeAlreadyExists) {
			if s.SignIn(ctx, username, password) == nil {
				return nil
			}
			return apperr.AlreadyExists("username already taken; log in or choose a different username")
		}
		return err
	}
	return s.SignIn(ctx, username, password)
}

// SignOut clears the stored token and the in-memory identity. It never
// contacts the network and cannot fail.
func (s *Session) SignOut() {
	s.tokens.Clear()
	s.setIdentity(nil)
}

func (s *Session) setIdentity(id *Identity) *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = id
	return id
}
