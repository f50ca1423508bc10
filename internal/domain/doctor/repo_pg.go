package doctor

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicrecords/clinic/internal/platform/apperr"
	"github.com/clinicrecords/clinic/internal/platform/db"
)

const (
	emailConstraint = "doctor_email_key"
	crmConstraint   = "doctor_crm_key"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const doctorCols = `id, name, email, password, crm, specialization, created_at`

func (r *repoPG) Create(ctx context.Context, d *Doctor) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctor (name, email, password, crm, specialization)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		d.Name, d.Email, d.PasswordHash, d.CRM, d.Specialization,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		if constraint, ok := db.UniqueViolation(err); ok {
			switch constraint {
			case emailConstraint:
				return apperr.ErrDuplicateEmail
			case crmConstraint:
				return apperr.ErrDuplicateCRM
			}
		}
		return apperr.Storage("doctor create", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Doctor, error) {
	return r.getOne(ctx, "doctor get by id", `SELECT `+doctorCols+` FROM doctor WHERE id = $1`, id)
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*Doctor, error) {
	return r.getOne(ctx, "doctor get by email", `SELECT `+doctorCols+` FROM doctor WHERE email = $1`, email)
}

func (r *repoPG) GetByCRM(ctx context.Context, crm string) (*Doctor, error) {
	return r.getOne(ctx, "doctor get by crm", `SELECT `+doctorCols+` FROM doctor WHERE crm = $1`, crm)
}

func (r *repoPG) getOne(ctx context.Context, op, query string, arg any) (*Doctor, error) {
	d, err := scanDoctor(r.conn(ctx).QueryRow(ctx, query, arg))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, fmt.Errorf("%s: doctor %w", op, apperr.ErrNotFound)
		}
		return nil, apperr.Storage(op, err)
	}
	return d, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Name, &d.Email, &d.PasswordHash, &d.CRM, &d.Specialization, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
