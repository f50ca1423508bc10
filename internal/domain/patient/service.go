package patient

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/clinicrecords/clinic/internal/platform/apperr"
	"github.com/clinicrecords/clinic/internal/platform/db"
)

type Service struct {
	repo    Repository
	records RecordPurger
	files   FileRemover
	tx      db.TxRunner
	logger  zerolog.Logger
}

func NewService(repo Repository, records RecordPurger, files FileRemover, tx db.TxRunner, logger zerolog.Logger) *Service {
	return &Service{repo: repo, records: records, files: files, tx: tx, logger: logger}
}

func (s *Service) List(ctx context.Context, doctorID int64, params ListParams) ([]*Patient, int, error) {
	return s.repo.ListForDoctor(ctx, doctorID, params)
}

func (s *Service) Get(ctx context.Context, doctorID, id int64) (*Patient, error) {
	return s.repo.GetForDoctor(ctx, doctorID, id)
}

func (s *Service) Create(ctx context.Context, doctorID int64, in Input) (*Patient, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	p := &Patient{
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		BirthDate: in.BirthDate,
		Address:   in.Address,
		DoctorID:  doctorID,
	}
	if err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, p)
	}); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, doctorID, id int64, patch Patch) (*Patient, error) {
	patch.normalize()
	if err := patch.validate(); err != nil {
		return nil, err
	}
	if patch.empty() {
		return s.repo.GetForDoctor(ctx, doctorID, id)
	}

	var out *Patient
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.repo.Update(ctx, doctorID, id, patch)
		out = p
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the patient and its records in one transaction, then
// removes the attachment files of the deleted records. File removal happens
// after commit and never fails the request.
func (s *Service) Delete(ctx context.Context, doctorID, id int64) error {
	var files []string
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetForDoctor(ctx, doctorID, id); err != nil {
			return err
		}
		names, err := s.records.DeleteByPatient(ctx, id)
		if err != nil {
			return err
		}
		files = names
		return s.repo.Delete(ctx, doctorID, id)
	})
	if err != nil {
		return err
	}

	for _, name := range files {
		if err := s.files.Remove(ctx, name); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			s.logger.Warn().Err(err).
				Int64("patient_id", id).
				Str("file", name).
				Msg("attachment cleanup failed")
		}
	}
	return nil
}
