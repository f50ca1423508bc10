package doctor

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/clinicrecords/clinic/internal/platform/apperr"
)

const (
	maxNameLen           = 100
	maxEmailLen          = 100
	maxCRMLen            = 20
	maxSpecializationLen = 100
	minPasswordLen       = 6
	// bcrypt ignores everything past 72 bytes
	maxPasswordBytes = 72
)

type Doctor struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	CRM            string    `json:"crm"`
	Specialization *string   `json:"specialization"`
	CreatedAt      time.Time `json:"created_at"`
}

// Profile is the public view of a doctor returned by login and /me.
type Profile struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Specialization *string `json:"specialization"`
}

func (d *Doctor) Profile() Profile {
	return Profile{ID: d.ID, Name: d.Name, Email: d.Email, Specialization: d.Specialization}
}

type RegisterInput struct {
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Password       string  `json:"password"`
	CRM            string  `json:"crm"`
	Specialization *string `json:"specialization"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Doctor    Profile   `json:"doctor"`
}

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (in *RegisterInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
	in.CRM = strings.TrimSpace(in.CRM)
	if in.Specialization != nil {
		s := strings.TrimSpace(*in.Specialization)
		if s == "" {
			in.Specialization = nil
		} else {
			in.Specialization = &s
		}
	}
}

func (in *RegisterInput) validate() error {
	switch {
	case in.Name == "":
		return apperr.Validation("name is required")
	case utf8.RuneCountInString(in.Name) > maxNameLen:
		return apperr.Validation("name must be at most %d characters", maxNameLen)
	case in.Email == "":
		return apperr.Validation("email is required")
	case len(in.Email) > maxEmailLen:
		return apperr.Validation("email must be at most %d characters", maxEmailLen)
	case !validEmail(in.Email):
		return apperr.Validation("email is not a valid address")
	case utf8.RuneCountInString(in.Password) < minPasswordLen:
		return apperr.Validation("password must be at least %d characters", minPasswordLen)
	case len(in.Password) > maxPasswordBytes:
		return apperr.Validation("password must be at most %d bytes", maxPasswordBytes)
	case in.CRM == "":
		return apperr.Validation("crm is required")
	case utf8.RuneCountInString(in.CRM) > maxCRMLen:
		return apperr.Validation("crm must be at most %d characters", maxCRMLen)
	case in.Specialization != nil && utf8.RuneCountInString(*in.Specialization) > maxSpecializationLen:
		return apperr.Validation("specialization must be at most %d characters", maxSpecializationLen)
	}
	return nil
}

// validEmail accepts a bare addr-spec; display names ("Ana <a@x.com>") are
// rejected.
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && addr.Name == ""
}
