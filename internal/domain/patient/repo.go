package patient

import "context"

// Repository is the patient directory. Every method is scoped to a doctor;
// rows owned by anyone else are reported as not found.
type Repository interface {
	ListForDoctor(ctx context.Context, doctorID int64, params ListParams) ([]*Patient, int, error)
	GetForDoctor(ctx context.Context, doctorID, id int64) (*Patient, error)
	Create(ctx context.Context, p *Patient) error
	Update(ctx context.Context, doctorID, id int64, patch Patch) (*Patient, error)
	Delete(ctx context.Context, doctorID, id int64) error
}

// RecordPurger deletes the records of a patient and returns the stored
// attachment names they referenced.
type RecordPurger interface {
	DeleteByPatient(ctx context.Context, patientID int64) ([]string, error)
}

// FileRemover removes stored attachments.
type FileRemover interface {
	Remove(ctx context.Context, name string) error
}
