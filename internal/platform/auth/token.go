package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/clinicrecords/clinic/internal/platform/apperr"
)

// DefaultTokenTTL is the lifetime of an access token.
const DefaultTokenTTL = 24 * time.Hour

// Claims is the payload of an access token. The doctor id is carried both
// as "id" and as the standard subject.
type Claims struct {
	DoctorID int64 `json:"id"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 access tokens. Tokens are
// stateless; there is no revocation list, logout is a client-side discard.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret []byte, ttl time.Duration) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, errors.New("token signing secret is empty")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: secret, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for doctorID that expires after the configured TTL.
func (s *TokenService) Issue(doctorID int64) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	c := Claims{
		DoctorID: doctorID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(doctorID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return tok, exp, nil
}

// Verify checks signature and expiry and returns the embedded doctor id.
func (s *TokenService) Verify(raw string) (int64, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		// block alg confusion
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, apperr.ErrExpiredToken
		}
		return 0, apperr.ErrInvalidToken
	}
	if !tok.Valid || claims.DoctorID <= 0 {
		return 0, apperr.ErrInvalidToken
	}
	return claims.DoctorID, nil
}
