//go:build integration

package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/clinicrecords/clinic/internal/domain/doctor"
	"github.com/clinicrecords/clinic/internal/platform/apperr"
)

func TestDoctorRepo(t *testing.T) {
	ctx := context.Background()
	resetTables(t)
	repo := doctor.NewRepo(globalPool)

	ana := createTestDoctor(t, ctx, "ana@x.com", "CRM-1")
	if ana.ID == 0 || ana.CreatedAt.IsZero() {
		t.Fatalf("expected id and created_at after create, got %+v", ana)
	}

	t.Run("GetByEmail", func(t *testing.T) {
		got, err := repo.GetByEmail(ctx, "ana@x.com")
		if err != nil {
			t.Fatalf("GetByEmail: %v", err)
		}
		if got.ID != ana.ID || got.PasswordHash != ana.PasswordHash {
			t.Errorf("unexpected doctor %+v", got)
		}
	})

	t.Run("GetByCRM", func(t *testing.T) {
		if _, err := repo.GetByCRM(ctx, "CRM-1"); err != nil {
			t.Fatalf("GetByCRM: %v", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		if _, err := repo.GetByID(ctx, 9999); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		d := &doctor.Doctor{Name: "Other", Email: "ana@x.com", PasswordHash: "h", CRM: "CRM-2"}
		if err := repo.Create(ctx, d); !errors.Is(err, apperr.ErrDuplicateEmail) {
			t.Errorf("expected ErrDuplicateEmail, got %v", err)
		}
	})

	t.Run("DuplicateCRM", func(t *testing.T) {
		d := &doctor.Doctor{Name: "Other", Email: "other@x.com", PasswordHash: "h", CRM: "CRM-1"}
		if err := repo.Create(ctx, d); !errors.Is(err, apperr.ErrDuplicateCRM) {
			t.Errorf("expected ErrDuplicateCRM, got %v", err)
		}
	})
}
