package client

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/arasli/duet-chat/internal/utils"
	"github.com/arasli/duet-chat/pkg/apperr"
)

func testStore(t *testing.T) *TokenStore {
	t.Helper()
	return NewTokenStore(filepath.Join(t.TempDir(), "session.jwt"))
}

func mintToken(t *testing.T, profileID string, ttl time.Duration) string {
	t.Helper()
	tok, err := utils.NewSessionToken("test-secret", profileID, ttl)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return tok.Token
}

func TestDeriveIdentityFromValidToken(t *testing.T) {
	store := testStore(t)
	if err := store.Set(mintToken(t, "user-1", time.Hour)); err != nil {
		t.Fatalf("set: %v", err)
	}
	s := NewSession(&fakeService{}, store)

	id := s.DeriveIdentity()
	if id == nil || id.ID != "user-1" {
		t.Fatalf("expected identity user-1, got %+v", id)
	}
}

func TestDeriveIdentityExpiredTokenClearsStore(t *testing.T) {
	store := testStore(t)
	if err := store.Set(mintToken(t, "user-1", -time.Hour)); err != nil {
		t.Fatalf("set: %v", err)
	}
	s := NewSession(&fakeService{}, store)

	if id := s.DeriveIdentity(); id != nil {
		t.Fatalf("expected nil identity for expired token, got %+v", id)
	}
	if store.Get() != "" {
		t.Fatalf("expired token not cleared from storage")
	}
}

func TestDeriveIdentityAbsentAndMalformedTokens(t *testing.T) {
	store := testStore(t)
	s := NewSession(&fakeService{}, store)
	if id := s.DeriveIdentity(); id != nil {
		t.Fatalf("expected nil identity with empty store, got %+v", id)
	}

	if err := store.Set("not.a.jwt"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if id := s.DeriveIdentity(); id != nil {
		t.Fatalf("expected nil identity for malformed token, got %+v", id)
	}
}

func TestSignInPersistsTokenAndIdentity(t *testing.T) {
	store := testStore(t)
	token := mintToken(t, "user-7", time.Hour)
	svc := &fakeService{loginFn: func(_ context.Context, u, p string) (TokenPair, error) {
		if u != "alice" {
			t.Errorf("username not trimmed: %q", u)
		}
		return TokenPair{AccessToken: token, RefreshToken: token}, nil
	}}
	s := NewSession(svc, store)

	if err := s.SignIn(context.Background(), "  alice  ", "pw"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if store.Get() != token {
		t.Fatalf("token not persisted")
	}
	if id := s.Identity(); id == nil || id.ID != "user-7" {
		t.Fatalf("identity not derived from token claims: %+v", id)
	}
}

func TestSignInFailsWithoutAccessToken(t *testing.T) {
	svc := &fakeService{loginFn: func(context.Context, string, string) (TokenPair, error) {
		return TokenPair{}, nil
	}}
	s := NewSession(svc, testStore(t))

	err := s.SignIn(context.Background(), "alice", "pw")
	if !apperr.Is(err, apperr.CodeUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestSignInCollapsesConcurrentSubmissions(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	release := make(chan struct{})
	token := mintToken(t, "user-1", time.Hour)
	svc := &fakeService{loginFn: func(context.Context, string, string) (TokenPair, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		<-release
		return TokenPair{AccessToken: token}, nil
	}}
	s := NewSession(svc, testStore(t))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.SignIn(context.Background(), "alice", "pw"); err != nil {
				t.Errorf("sign in: %v", err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond) // let both submissions land on the guard
	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected one login exchange, got %d", calls)
	}
}

func TestSignUpSuccessSignsIn(t *testing.T) {
	token := mintToken(t, "user-1", time.Hour)
	svc := &fakeService{
		signUpFn: func(context.Context, string, string) (string, error) { return "user-1", nil },
		loginFn: func(context.Context, string, string) (TokenPair, error) {
			return TokenPair{AccessToken: token}, nil
		},
	}
	s := NewSession(svc, testStore(t))

	if err := s.SignUp(context.Background(), "alice", "pw"); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if id := s.Identity(); id == nil || id.ID != "user-1" {
		t.Fatalf("expected signed-in identity after sign up, got %+v", id)
	}
}

func TestSignUpConflictFallsBackToSignIn(t *testing.T) {
	token := mintToken(t, "user-1", time.Hour)
	svc := &fakeService{
		signUpFn: func(context.Context, string, string) (string, error) {
			return "", apperr.AlreadyExists("username already taken")
		},
		loginFn: func(context.Context, string, string) (TokenPair, error) {
			return TokenPair{AccessToken: token}, nil
		},
	}
	s := NewSession(svc, testStore(t))

	if err := s.SignUp(context.Background(), "alice", "pw"); err != nil {
		t.Fatalf("expected conflict to recover via sign in, got %v", err)
	}
}

func TestSignUpConflictWithWrongPasswordSurfacesTakenError(t *testing.T) {
	svc := &fakeService{
		signUpFn: func(context.Context, string, string) (string, error) {
			return "", apperr.AlreadyExists("username already taken")
		},
		loginFn: func(context.Context, string, string) (TokenPair, error) {
			return TokenPair{}, apperr.Unauthenticated("invalid username or password")
		},
	}
	s := NewSession(svc, testStore(t))

	err := s.SignUp(context.Background(), "bob", "not-bobs-password")
	if !apperr.Is(err, apperr.CodeAlreadyExists) {
		t.Fatalf("expected taken-flavored error, got %v", err)
	}
}

func TestSignUpPropagatesOtherErrors(t *testing.T) {
	boom := errors.New("backend down")
	svc := &fakeService{
		signUpFn: func(context.Context, string, string) (string, error) { return "", boom },
		loginFn: func(context.Context, string, string) (TokenPair, error) {
			t.Fatal("must not attempt sign in")
			return TokenPair{}, nil
		},
	}
	s := NewSession(svc, testStore(t))

	if err := s.SignUp(context.Background(), "alice", "pw"); !errors.Is(err, boom) {
		t.Fatalf("expected error to propagate, got %v", err)
	}
}

func TestSignOutClearsEverything(t *testing.T) {
	store := testStore(t)
	if err := store.Set(mintToken(t, "user-1", time.Hour)); err != nil {
		t.Fatalf("set: %v", err)
	}
	s := NewSession(&fakeService{}, store)
	s.DeriveIdentity()

	s.SignOut()
	if s.Identity() != nil {
		t.Fatalf("identity survived sign out")
	}
	if store.Get() != "" {
		t.Fatalf("token survived sign out")
	}
}
