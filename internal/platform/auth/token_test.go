package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/clinicrecords/clinic/internal/platform/apperr"
)

func TestNewTokenService_EmptySecret(t *testing.T) {
	if _, err := NewTokenService(nil, time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestNewTokenService_DefaultTTL(t *testing.T) {
	svc, err := NewTokenService(testSigningKey, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.ttl != DefaultTokenTTL {
		t.Errorf("ttl = %v, want %v", svc.ttl, DefaultTokenTTL)
	}
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc := newTestTokens(t)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	tok, exp, err := svc.Issue(17)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !exp.Equal(fixed.Add(time.Hour)) {
		t.Errorf("exp = %v, want %v", exp, fixed.Add(time.Hour))
	}

	id, err := svc.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id != 17 {
		t.Errorf("id = %d, want 17", id)
	}
}

func TestTokenService_Expired(t *testing.T) {
	svc := newTestTokens(t)
	issued := time.Now()
	svc.now = func() time.Time { return issued }
	tok, _, _ := svc.Issue(1)

	svc.now = func() time.Time { return issued.Add(time.Hour + time.Minute) }
	_, err := svc.Verify(tok)
	if !errors.Is(err, apperr.ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestTokenService_WrongSecret(t *testing.T) {
	issuer := newTestTokens(t)
	tok, _, _ := issuer.Issue(1)

	other, _ := NewTokenService([]byte("another-secret-entirely-different"), time.Hour)
	if _, err := other.Verify(tok); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenService_Tampered(t *testing.T) {
	svc := newTestTokens(t)
	tok, _, _ := svc.Issue(1)

	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", tok)
	}
	forged := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	if _, err := svc.Verify(forged); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenService_RejectsNoneAlg(t *testing.T) {
	svc := newTestTokens(t)
	c := Claims{
		DoctorID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, c).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := svc.Verify(tok); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenService_MissingExpiry(t *testing.T) {
	svc := newTestTokens(t)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{DoctorID: 1}).SignedString(testSigningKey)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := svc.Verify(tok); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenService_NonPositiveID(t *testing.T) {
	svc := newTestTokens(t)
	tok, _, _ := svc.Issue(0)
	if _, err := svc.Verify(tok); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
