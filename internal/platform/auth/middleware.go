package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/clinicrecords/clinic/internal/platform/apperr"
)

type contextKey string

const principalKey contextKey = "principal"

// TokenHeader carries the access token on protected requests.
const TokenHeader = "x-access-token"

// Principal is the authenticated doctor as seen by downstream handlers.
type Principal struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Specialization *string `json:"specialization"`
}

// PrincipalResolver loads the doctor a verified token points at. It returns
// an error wrapping apperr.ErrNotFound when the doctor no longer exists.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, doctorID int64) (*Principal, error)
}

// TokenVerifier is satisfied by *TokenService.
type TokenVerifier interface {
	Verify(raw string) (int64, error)
}

type MiddlewareConfig struct {
	Verifier TokenVerifier
	Resolver PrincipalResolver
	// Skipper bypasses authentication for matching requests.
	Skipper func(echo.Context) bool
}

// Middleware extracts the token, verifies it, resolves the doctor and
// injects it into the request context. Any failure short-circuits with a
// 401-class error before the wrapped handler runs.
func Middleware(cfg MiddlewareConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			p, err := Authenticate(c, cfg.Verifier, cfg.Resolver)
			if err != nil {
				return err
			}

			c.SetRequest(c.Request().WithContext(WithPrincipal(c.Request().Context(), p)))
			c.Set("doctor_id", p.ID)
			return next(c)
		}
	}
}

// Authenticate runs the token checks for a single request without touching
// the context. Handlers that authenticate optionally call it directly.
func Authenticate(c echo.Context, v TokenVerifier, r PrincipalResolver) (*Principal, error) {
	raw := strings.TrimSpace(c.Request().Header.Get(TokenHeader))
	if raw == "" {
		return nil, apperr.ErrMissingToken
	}

	doctorID, err := v.Verify(raw)
	if err != nil {
		return nil, err
	}

	p, err := r.ResolvePrincipal(c.Request().Context(), doctorID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrInvalidToken
		}
		return nil, err
	}
	return p, nil
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the doctor injected by Middleware, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// MustPrincipal returns the authenticated doctor or ErrMissingToken when a
// handler is reached without Middleware in front of it.
func MustPrincipal(c echo.Context) (*Principal, error) {
	p := PrincipalFromContext(c.Request().Context())
	if p == nil {
		return nil, apperr.ErrMissingToken
	}
	return p, nil
}
