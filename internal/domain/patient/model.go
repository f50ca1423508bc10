package patient

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/clinicrecords/clinic/internal/platform/apperr"
	"github.com/clinicrecords/clinic/pkg/pagination"
)

const (
	maxNameLen    = 100
	maxEmailLen   = 100
	maxPhoneLen   = 20
	maxAddressLen = 200

	// DateLayout is the wire and storage format of birth_date.
	DateLayout = "2006-01-02"
)

type Patient struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     *string   `json:"email"`
	Phone     *string   `json:"phone"`
	BirthDate *string   `json:"birth_date"`
	Address   *string   `json:"address"`
	DoctorID  int64     `json:"doctor_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Input is the body of POST /api/patients. It has no doctor_id; the owner
// is always the authenticated doctor.
type Input struct {
	Name      string  `json:"name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	BirthDate *string `json:"birth_date"`
	Address   *string `json:"address"`
}

// Patch is the body of PUT /api/patients/:id. Nil fields are left unchanged.
type Patch struct {
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	BirthDate *string `json:"birth_date"`
	Address   *string `json:"address"`
}

func (p Patch) empty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil && p.BirthDate == nil && p.Address == nil
}

type ListParams struct {
	pagination.Params
	Search string
}

func (in *Input) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = trimOptional(in.Email)
	in.Phone = trimOptional(in.Phone)
	in.BirthDate = trimOptional(in.BirthDate)
	in.Address = trimOptional(in.Address)
}

func (in *Input) validate() error {
	if in.Name == "" {
		return apperr.Validation("name is required")
	}
	return validateFields(&in.Name, in.Email, in.Phone, in.BirthDate, in.Address)
}

func (p *Patch) normalize() {
	if p.Name != nil {
		n := strings.TrimSpace(*p.Name)
		p.Name = &n
	}
	p.Email = trimKeepEmpty(p.Email)
	p.Phone = trimKeepEmpty(p.Phone)
	p.BirthDate = trimKeepEmpty(p.BirthDate)
	p.Address = trimKeepEmpty(p.Address)
}

func (p *Patch) validate() error {
	if p.Name != nil && *p.Name == "" {
		return apperr.Validation("name must not be empty")
	}
	return validateFields(p.Name, nonEmpty(p.Email), nonEmpty(p.Phone), nonEmpty(p.BirthDate), nonEmpty(p.Address))
}

func validateFields(name, email, phone, birthDate, address *string) error {
	if name != nil && utf8.RuneCountInString(*name) > maxNameLen {
		return apperr.Validation("name must be at most %d characters", maxNameLen)
	}
	if email != nil && utf8.RuneCountInString(*email) > maxEmailLen {
		return apperr.Validation("email must be at most %d characters", maxEmailLen)
	}
	if phone != nil && utf8.RuneCountInString(*phone) > maxPhoneLen {
		return apperr.Validation("phone must be at most %d characters", maxPhoneLen)
	}
	if address != nil && utf8.RuneCountInString(*address) > maxAddressLen {
		return apperr.Validation("address must be at most %d characters", maxAddressLen)
	}
	if birthDate != nil {
		if _, err := time.Parse(DateLayout, *birthDate); err != nil {
			return apperr.Validation("birth_date must be a date in YYYY-MM-DD format")
		}
	}
	return nil
}

// trimOptional trims s and maps blank values to nil.
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// trimKeepEmpty trims s but keeps "" so a patch can clear a field.
func trimKeepEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// EscapeLike escapes the ILIKE metacharacters in a user search term.
func EscapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
