package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicrecords/clinic/internal/platform/apperr"
	"github.com/clinicrecords/clinic/internal/platform/db"
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

const patientCols = `id, name, email, phone, to_char(birth_date, 'YYYY-MM-DD'), address, doctor_id, created_at`

func notFound(op string, id int64) error {
	return fmt.Errorf("%s: patient %d %w", op, id, apperr.ErrNotFound)
}

func (r *repoPG) ListForDoctor(ctx context.Context, doctorID int64, params ListParams) ([]*Patient, int, error) {
	where := `doctor_id = $1`
	args := []any{doctorID}
	if params.Search != "" {
		where += ` AND name ILIKE '%' || $2 || '%'`
		args = append(args, EscapeLike(params.Search))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Storage("patient count", err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM patient WHERE %s ORDER BY id ASC LIMIT $%d OFFSET $%d`,
		patientCols, where, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, params.Limit(), params.Offset())...)
	if err != nil {
		return nil, 0, apperr.Storage("patient list", err)
	}
	defer rows.Close()

	patients := []*Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, apperr.Storage("patient list scan", err)
		}
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Storage("patient list", err)
	}
	return patients, total, nil
}

func (r *repoPG) GetForDoctor(ctx context.Context, doctorID, id int64) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE id = $1 AND doctor_id = $2`, id, doctorID))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, notFound("patient get", id)
		}
		return nil, apperr.Storage("patient get", err)
	}
	return p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (name, email, phone, birth_date, address, doctor_id)
		VALUES ($1, $2, $3, $4::date, $5, $6)
		RETURNING id, created_at`,
		p.Name, p.Email, p.Phone, p.BirthDate, p.Address, p.DoctorID,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return apperr.Storage("patient create", err)
	}
	return nil
}

// Update applies the non-nil fields of patch. Empty optional fields are
// stored as NULL. Ownership is part of the WHERE clause.
func (r *repoPG) Update(ctx context.Context, doctorID, id int64, patch Patch) (*Patient, error) {
	var sets []string
	args := []any{id, doctorID}
	set := func(col string, v *string, cast string) {
		if v == nil {
			return
		}
		var val any = *v
		if *v == "" && col != "name" {
			val = nil
		}
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d%s", col, len(args), cast))
	}
	set("name", patch.Name, "")
	set("email", patch.Email, "")
	set("phone", patch.Phone, "")
	set("birth_date", patch.BirthDate, "::date")
	set("address", patch.Address, "")

	if len(sets) == 0 {
		return r.GetForDoctor(ctx, doctorID, id)
	}

	query := `UPDATE patient SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 AND doctor_id = $2 RETURNING ` + patientCols
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, notFound("patient update", id)
		}
		return nil, apperr.Storage("patient update", err)
	}
	return p, nil
}

func (r *repoPG) Delete(ctx context.Context, doctorID, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1 AND doctor_id = $2`, id, doctorID)
	if err != nil {
		return apperr.Storage("patient delete", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("patient delete", id)
	}
	return nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.BirthDate, &p.Address, &p.DoctorID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
