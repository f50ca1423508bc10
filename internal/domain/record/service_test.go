package record

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicrecords/clinic/internal/platform/apperr"
	"github.com/clinicrecords/clinic/internal/platform/filestore"
)

// -- Mock Repository --

type mockRepo struct {
	owners     map[int64]int64 // patient id -> doctor id
	records    map[int64]*Record
	nextID     int64
	setPathErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{owners: make(map[int64]int64), records: make(map[int64]*Record)}
}

func (m *mockRepo) CheckPatient(_ context.Context, doctorID, patientID int64) error {
	if owner, ok := m.owners[patientID]; !ok || owner != doctorID {
		return fmt.Errorf("patient %d %w", patientID, apperr.ErrNotFound)
	}
	return nil
}

func (m *mockRepo) ListForPatient(_ context.Context, patientID int64) ([]*Record, error) {
	out := []*Record{}
	for _, r := range m.records {
		if r.PatientID == patientID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RecordDate != out[j].RecordDate {
			return out[i].RecordDate < out[j].RecordDate
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *mockRepo) Create(_ context.Context, r *Record) error {
	m.nextID++
	r.ID = m.nextID
	r.CreatedAt = time.Now()
	cp := *r
	m.records[r.ID] = &cp
	return nil
}

func (m *mockRepo) SetFilePath(_ context.Context, id int64, name string) error {
	if m.setPathErr != nil {
		return m.setPathErr
	}
	r, ok := m.records[id]
	if !ok {
		return fmt.Errorf("record %d %w", id, apperr.ErrNotFound)
	}
	r.FilePath = &name
	return nil
}

func (m *mockRepo) DeleteByPatient(_ context.Context, patientID int64) ([]string, error) {
	var names []string
	for id, r := range m.records {
		if r.PatientID == patientID {
			if r.FilePath != nil {
				names = append(names, *r.FilePath)
			}
			delete(m.records, id)
		}
	}
	return names, nil
}

func (m *mockRepo) CheckFileOwner(_ context.Context, doctorID int64, name string) error {
	for _, r := range m.records {
		if r.FilePath != nil && *r.FilePath == name && m.owners[r.PatientID] == doctorID {
			return nil
		}
	}
	return fmt.Errorf("file %s %w", name, apperr.ErrNotFound)
}

type passTx struct{}

func (passTx) WithTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

// brokenStore fails every write.
type brokenStore struct{ *filestore.MemoryStore }

func (brokenStore) Save(context.Context, string, io.Reader) (int64, error) {
	return 0, errors.New("no space left on device")
}

const (
	doctorA  = int64(1)
	doctorB  = int64(2)
	patientA = int64(10)
	patientB = int64(20)
)

func newTestService(store filestore.Store) (*Service, *mockRepo) {
	repo := newMockRepo()
	repo.owners[patientA] = doctorA
	repo.owners[patientB] = doctorB
	return NewService(repo, store, passTx{}, zerolog.Nop()), repo
}

func validInput() Input {
	return Input{Title: "Consulta", RecordDate: "2024-03-01"}
}

func TestCreate_WithoutFile(t *testing.T) {
	svc, repo := newTestService(filestore.NewMemoryStore())

	rec, err := svc.Create(context.Background(), doctorA, patientA, validInput(), nil)
	require.NoError(t, err)
	assert.Equal(t, patientA, rec.PatientID)
	assert.Nil(t, rec.FilePath)
	assert.Len(t, repo.records, 1)
}

func TestCreate_WithAllowedFile(t *testing.T) {
	store := filestore.NewMemoryStore()
	svc, repo := newTestService(store)

	up := &Upload{Filename: "Exame Sangue.PDF", Content: strings.NewReader("%PDF")}
	rec, err := svc.Create(context.Background(), doctorA, patientA, validInput(), up)
	require.NoError(t, err)

	require.NotNil(t, rec.FilePath)
	assert.Equal(t, "1_Exame_Sangue.PDF", *rec.FilePath)
	assert.True(t, store.Has("1_Exame_Sangue.PDF"))
	require.NotNil(t, repo.records[rec.ID].FilePath)
	assert.Equal(t, *rec.FilePath, *repo.records[rec.ID].FilePath)
}

func TestCreate_DisallowedExtensionDropped(t *testing.T) {
	store := filestore.NewMemoryStore()
	svc, repo := newTestService(store)

	up := &Upload{Filename: "malware.exe", Content: strings.NewReader("MZ")}
	rec, err := svc.Create(context.Background(), doctorA, patientA, validInput(), up)
	require.NoError(t, err)

	assert.Nil(t, rec.FilePath)
	assert.Nil(t, repo.records[rec.ID].FilePath)
	assert.False(t, store.Has("1_malware.exe"))
}

func TestCreate_SaveFailureKeepsRecord(t *testing.T) {
	svc, repo := newTestService(brokenStore{filestore.NewMemoryStore()})

	up := &Upload{Filename: "scan.png", Content: strings.NewReader("png")}
	rec, err := svc.Create(context.Background(), doctorA, patientA, validInput(), up)
	require.NoError(t, err)

	assert.Nil(t, rec.FilePath)
	assert.Contains(t, repo.records, rec.ID, "record stays committed")
}

func TestCreate_LinkFailureRemovesFile(t *testing.T) {
	store := filestore.NewMemoryStore()
	svc, repo := newTestService(store)
	repo.setPathErr = apperr.Storage("record set file path", errors.New("connection reset"))

	up := &Upload{Filename: "scan.png", Content: strings.NewReader("png")}
	rec, err := svc.Create(context.Background(), doctorA, patientA, validInput(), up)
	require.NoError(t, err)

	assert.Nil(t, rec.FilePath)
	assert.False(t, store.Has("1_scan.png"), "unlinked file must not linger")
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   Input
	}{
		{"missing title", Input{RecordDate: "2024-03-01"}},
		{"blank title", Input{Title: "   ", RecordDate: "2024-03-01"}},
		{"long title", Input{Title: strings.Repeat("t", 101), RecordDate: "2024-03-01"}},
		{"missing date", Input{Title: "Consulta"}},
		{"bad date", Input{Title: "Consulta", RecordDate: "01/03/2024"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestService(filestore.NewMemoryStore())
			_, err := svc.Create(context.Background(), doctorA, patientA, tt.in, nil)
			assert.ErrorIs(t, err, apperr.ErrValidation)
			assert.Empty(t, repo.records)
		})
	}
}

func TestCreate_CrossDoctorIsNotFound(t *testing.T) {
	store := filestore.NewMemoryStore()
	svc, repo := newTestService(store)

	up := &Upload{Filename: "scan.pdf", Content: strings.NewReader("%PDF")}
	_, err := svc.Create(context.Background(), doctorA, patientB, validInput(), up)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Empty(t, repo.records)
	assert.False(t, store.Has("1_scan.pdf"))
}

func TestList(t *testing.T) {
	svc, _ := newTestService(filestore.NewMemoryStore())
	ctx := context.Background()

	later := validInput()
	later.RecordDate = "2024-05-01"
	_, err := svc.Create(ctx, doctorA, patientA, later, nil)
	require.NoError(t, err)
	_, err = svc.Create(ctx, doctorA, patientA, validInput(), nil)
	require.NoError(t, err)

	records, err := svc.List(ctx, doctorA, patientA)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2024-03-01", records[0].RecordDate)

	_, err = svc.List(ctx, doctorB, patientA)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.List(ctx, doctorA, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDownload(t *testing.T) {
	store := filestore.NewMemoryStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	rec, err := svc.Create(ctx, doctorA, patientA, validInput(), &Upload{Filename: "scan.pdf", Content: strings.NewReader("%PDF")})
	require.NoError(t, err)
	name := *rec.FilePath

	t.Run("anonymous", func(t *testing.T) {
		rc, err := svc.Download(ctx, 0, name)
		require.NoError(t, err)
		defer rc.Close()
		b, _ := io.ReadAll(rc)
		assert.Equal(t, "%PDF", string(b))
	})

	t.Run("owner", func(t *testing.T) {
		rc, err := svc.Download(ctx, doctorA, name)
		require.NoError(t, err)
		rc.Close()
	})

	t.Run("other doctor", func(t *testing.T) {
		_, err := svc.Download(ctx, doctorB, name)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("traversal", func(t *testing.T) {
		_, err := svc.Download(ctx, 0, "../"+name)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := svc.Download(ctx, 0, "99_nothing.pdf")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}
