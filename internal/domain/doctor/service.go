package doctor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clinicrecords/clinic/internal/platform/apperr"
	"github.com/clinicrecords/clinic/internal/platform/auth"
	"github.com/clinicrecords/clinic/internal/platform/db"
)

// TokenIssuer is satisfied by *auth.TokenService.
type TokenIssuer interface {
	Issue(doctorID int64) (string, time.Time, error)
}

type Service struct {
	repo   Repository
	tx     db.TxRunner
	tokens TokenIssuer
}

func NewService(repo Repository, tx db.TxRunner, tokens TokenIssuer) *Service {
	return &Service{repo: repo, tx: tx, tokens: tokens}
}

// Register creates a doctor account. Email and CRM are checked up front so
// the caller gets a precise error; the unique constraints still arbitrate
// concurrent registrations.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Doctor, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	d := &Doctor{
		Name:           in.Name,
		Email:          in.Email,
		PasswordHash:   hash,
		CRM:            in.CRM,
		Specialization: in.Specialization,
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.ensureFree(ctx, s.repo.GetByEmail, d.Email, apperr.ErrDuplicateEmail); err != nil {
			return err
		}
		if err := s.ensureFree(ctx, s.repo.GetByCRM, d.CRM, apperr.ErrDuplicateCRM); err != nil {
			return err
		}
		return s.repo.Create(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) ensureFree(ctx context.Context, lookup func(context.Context, string) (*Doctor, error), key string, taken error) error {
	_, err := lookup(ctx, key)
	switch {
	case err == nil:
		return taken
	case errors.Is(err, apperr.ErrNotFound):
		return nil
	default:
		return err
	}
}

// Login verifies credentials and issues a token. An unknown email and a
// wrong password fail identically, and both run one bcrypt comparison.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, apperr.Validation("email and password are required")
	}

	d, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			auth.BurnPasswordCheck(in.Password)
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(d.PasswordHash, in.Password) {
		return nil, apperr.ErrInvalidCredentials
	}

	token, exp, err := s.tokens.Issue(d.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: exp, Doctor: d.Profile()}, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Doctor, error) {
	return s.repo.GetByID(ctx, id)
}
