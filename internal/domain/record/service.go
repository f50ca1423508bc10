package record

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"

	"github.com/clinicrecords/clinic/internal/platform/apperr"
	"github.com/clinicrecords/clinic/internal/platform/db"
	"github.com/clinicrecords/clinic/internal/platform/filestore"
)

type Service struct {
	repo   Repository
	files  filestore.Store
	tx     db.TxRunner
	logger zerolog.Logger
}

func NewService(repo Repository, files filestore.Store, tx db.TxRunner, logger zerolog.Logger) *Service {
	return &Service{repo: repo, files: files, tx: tx, logger: logger}
}

func (s *Service) List(ctx context.Context, doctorID, patientID int64) ([]*Record, error) {
	if err := s.repo.CheckPatient(ctx, doctorID, patientID); err != nil {
		return nil, err
	}
	return s.repo.ListForPatient(ctx, patientID)
}

// Create inserts the record and commits it before any attachment is
// written. An attachment with a disallowed extension is dropped; one that
// fails to store leaves the record without a file_path.
func (s *Service) Create(ctx context.Context, doctorID, patientID int64, in Input, up *Upload) (*Record, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	rec := &Record{
		Title:       in.Title,
		Description: in.Description,
		RecordDate:  in.RecordDate,
		PatientID:   patientID,
	}
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.CheckPatient(ctx, doctorID, patientID); err != nil {
			return err
		}
		return s.repo.Create(ctx, rec)
	})
	if err != nil {
		return nil, err
	}

	if up != nil && up.Filename != "" {
		s.attach(ctx, rec, up)
	}
	return rec, nil
}

func (s *Service) attach(ctx context.Context, rec *Record, up *Upload) {
	log := s.logger.With().Int64("record_id", rec.ID).Str("upload", up.Filename).Logger()

	if !filestore.Allowed(up.Filename) {
		log.Info().Msg("attachment dropped: extension not allowed")
		return
	}
	name, err := filestore.StoredName(rec.ID, up.Filename)
	if err != nil {
		log.Info().Err(err).Msg("attachment dropped: unusable file name")
		return
	}

	if _, err := s.files.Save(ctx, name, up.Content); err != nil {
		log.Warn().Err(err).Msg("attachment save failed; record kept without file")
		return
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		return s.repo.SetFilePath(ctx, rec.ID, name)
	})
	if err != nil {
		log.Warn().Err(err).Msg("attachment link failed; record kept without file")
		if rmErr := s.files.Remove(ctx, name); rmErr != nil {
			log.Warn().Err(rmErr).Str("file", name).Msg("orphan attachment cleanup failed")
		}
		return
	}
	rec.FilePath = &name
}

// Download opens a stored attachment. When doctorID is non-zero the file must
// belong to one of that doctor's records.
func (s *Service) Download(ctx context.Context, doctorID int64, name string) (io.ReadCloser, error) {
	if name == "" || filestore.SanitizeName(name) != name {
		return nil, filestore.ErrNotFound
	}
	if doctorID != 0 {
		if err := s.repo.CheckFileOwner(ctx, doctorID, name); err != nil {
			return nil, err
		}
	}
	rc, err := s.files.Open(ctx, name)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		return nil, apperr.Storage("open attachment", err)
	}
	return rc, nil
}
