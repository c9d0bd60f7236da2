package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestNewSessionTokenClaims(t *testing.T) {
	before := time.Now().UTC()
	tok, err := NewSessionToken("secret", "profile-1", 7*24*time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.NewParser().ParseWithClaims(tok.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("verify: %v", err)
	}
	if got, _ := claims["sub"].(string); got != "profile-1" {
		t.Fatalf("sub = %q", got)
	}
	if got, _ := claims["role"].(string); got != RoleAuthenticated {
		t.Fatalf("role = %q", got)
	}

	wantExp := before.Add(7 * 24 * time.Hour)
	if tok.Exp.Before(wantExp.Add(-time.Minute)) || tok.Exp.After(wantExp.Add(time.Minute)) {
		t.Fatalf("exp = %v, want about %v", tok.Exp, wantExp)
	}
	iat, _ := claims["iat"].(float64)
	if time.Unix(int64(iat), 0).Before(before.Add(-time.Minute)) {
		t.Fatalf("iat = %v, too old", time.Unix(int64(iat), 0))
	}
}

func TestNewSessionTokenRejectedWithWrongSecret(t *testing.T) {
	tok, err := NewSessionToken("secret", "profile-1", time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	_, err = jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) {
		return []byte("other"), nil
	})
	if err == nil {
		t.Fatalf("token verified with the wrong secret")
	}
}

func TestDecodeSessionClaims(t *testing.T) {
	tok, err := NewSessionToken("secret", "profile-1", time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	sub, exp, err := DecodeSessionClaims(tok.Token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sub != "profile-1" {
		t.Fatalf("sub = %q", sub)
	}
	if !exp.Equal(tok.Exp.Truncate(time.Second)) {
		t.Fatalf("exp = %v, want %v", exp, tok.Exp.Truncate(time.Second))
	}
}

func TestDecodeSessionClaimsMalformed(t *testing.T) {
	if _, _, err := DecodeSessionClaims("not-a-jwt"); err == nil {
		t.Fatalf("garbage input must fail to decode")
	}

	// structurally valid token without a subject
	noSub := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	signed, err := noSub.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, _, err := DecodeSessionClaims(signed); err != ErrMalformedToken {
		t.Fatalf("err = %v, want ErrMalformedToken", err)
	}
}
