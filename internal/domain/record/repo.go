package record

import "context"

// Repository is the record store. Ownership is always resolved through the
// patient's doctor_id; a patient or file owned by another doctor is reported
// as not found.
type Repository interface {
	CheckPatient(ctx context.Context, doctorID, patientID int64) error
	ListForPatient(ctx context.Context, patientID int64) ([]*Record, error)
	Create(ctx context.Context, r *Record) error
	SetFilePath(ctx context.Context, id int64, name string) error
	DeleteByPatient(ctx context.Context, patientID int64) ([]string, error)
	CheckFileOwner(ctx context.Context, doctorID int64, name string) error
}
