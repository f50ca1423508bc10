package record

import (
	"context"
	"fmt"

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

const recordCols = `id, title, description, file_path, to_char(record_date, 'YYYY-MM-DD'), patient_id, created_at`

func (r *repoPG) CheckPatient(ctx context.Context, doctorID, patientID int64) error {
	var one int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT 1 FROM patient WHERE id = $1 AND doctor_id = $2`, patientID, doctorID).Scan(&one)
	if err != nil {
		if db.IsNoRows(err) {
			return fmt.Errorf("patient %d %w", patientID, apperr.ErrNotFound)
		}
		return apperr.Storage("record patient check", err)
	}
	return nil
}

func (r *repoPG) ListForPatient(ctx context.Context, patientID int64) ([]*Record, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+recordCols+` FROM medical_record WHERE patient_id = $1 ORDER BY record_date, id`, patientID)
	if err != nil {
		return nil, apperr.Storage("record list", err)
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, apperr.Storage("record list scan", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("record list", err)
	}
	return records, nil
}

func (r *repoPG) Create(ctx context.Context, rec *Record) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medical_record (title, description, record_date, patient_id)
		VALUES ($1, $2, $3::date, $4)
		RETURNING id, created_at`,
		rec.Title, rec.Description, rec.RecordDate, rec.PatientID,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return apperr.Storage("record create", err)
	}
	return nil
}

func (r *repoPG) SetFilePath(ctx context.Context, id int64, name string) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE medical_record SET file_path = $2 WHERE id = $1`, id, name)
	if err != nil {
		return apperr.Storage("record set file path", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record %d %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (r *repoPG) DeleteByPatient(ctx context.Context, patientID int64) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`DELETE FROM medical_record WHERE patient_id = $1 RETURNING file_path`, patientID)
	if err != nil {
		return nil, apperr.Storage("record delete", err)
	}
	paths, err := pgx.CollectRows(rows, pgx.RowTo[*string])
	if err != nil {
		return nil, apperr.Storage("record delete", err)
	}

	var names []string
	for _, p := range paths {
		if p != nil && *p != "" {
			names = append(names, *p)
		}
	}
	return names, nil
}

func (r *repoPG) CheckFileOwner(ctx context.Context, doctorID int64, name string) error {
	var one int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT 1 FROM medical_record m
		JOIN patient p ON p.id = m.patient_id
		WHERE m.file_path = $1 AND p.doctor_id = $2`, name, doctorID).Scan(&one)
	if err != nil {
		if db.IsNoRows(err) {
			return fmt.Errorf("file %s %w", name, apperr.ErrNotFound)
		}
		return apperr.Storage("record file owner", err)
	}
	return nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.Title, &rec.Description, &rec.FilePath, &rec.RecordDate, &rec.PatientID, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
