package filestore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/clinicrecords/clinic/internal/platform/apperr"
)

func TestAllowed(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"scan.pdf", true},
		{"SCAN.PDF", true},
		{"photo.JpEg", true},
		{"photo.jpg", true},
		{"xray.png", true},
		{"notes.docx", true},
		{"malware.exe", false},
		{"archive.pdf.exe", false},
		{"noextension", false},
		{"", false},
		{".pdf", true},
	}
	for _, tt := range tests {
		if got := Allowed(tt.name); got != tt.want {
			t.Errorf("Allowed(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"My Report.pdf", "My_Report.pdf"},
		{"../../etc/passwd", "etc_passwd"},
		{`..\..\windows\system.ini`, "windows_system.ini"},
		{"exame<script>.pdf", "examescript.pdf"},
		{"...", ""},
		{"", ""},
		{"résumé.pdf", "rsum.pdf"},
		{".hidden.png", "hidden.png"},
	}
	for _, tt := range tests {
		if got := SanitizeName(tt.in); got != tt.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStoredName(t *testing.T) {
	got, err := StoredName(12, "exam result.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "12_exam_result.pdf" {
		t.Errorf("StoredName = %q", got)
	}

	if _, err := StoredName(12, "malware.exe"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("expected ErrInvalidName for disallowed extension, got %v", err)
	}

	got, err = StoredName(3, "../../secret.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.ContainsAny(got, `/\`) {
		t.Errorf("stored name must be a single component, got %q", got)
	}
}

func TestContentType(t *testing.T) {
	if got := ContentType("1_a.pdf"); got != "application/pdf" {
		t.Errorf("pdf content type = %q", got)
	}
	if got := ContentType("1_a.PNG"); got != "image/png" {
		t.Errorf("png content type = %q", got)
	}
	if got := ContentType("1_a"); got != "application/octet-stream" {
		t.Errorf("fallback content type = %q", got)
	}
}

func TestErrNotFound_MapsToAppErr(t *testing.T) {
	if !errors.Is(ErrNotFound, apperr.ErrNotFound) {
		t.Fatal("ErrNotFound must wrap apperr.ErrNotFound")
	}
}

func testStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	n, err := store.Save(ctx, "1_scan.pdf", strings.NewReader("%PDF-1.4 test"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n != int64(len("%PDF-1.4 test")) {
		t.Errorf("Save size = %d", n)
	}

	rc, err := store.Open(ctx, "1_scan.pdf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "%PDF-1.4 test" {
		t.Errorf("content = %q", data)
	}

	if _, err := store.Open(ctx, "missing.pdf"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := store.Open(ctx, "../1_scan.pdf"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found for traversal, got %v", err)
	}
	if _, err := store.Save(ctx, "../evil.pdf", strings.NewReader("x")); !errors.Is(err, ErrInvalidName) {
		t.Errorf("expected ErrInvalidName, got %v", err)
	}

	if err := store.Remove(ctx, "1_scan.pdf"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := store.Remove(ctx, "1_scan.pdf"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second Remove: expected not found, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	testStoreContract(t, NewMemoryStore())
}

func TestDiskStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := NewDiskStore(dir)
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("upload dir not created: %v", err)
	}
	testStoreContract(t, store)
}

func TestDiskStore_NoTempLeftovers(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	if _, err := store.Save(context.Background(), "2_x.png", strings.NewReader("png")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(store.Dir())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "2_x.png" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("unexpected directory contents: %v", names)
	}
}

func TestDiskStore_OpenDirectory(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	if err := os.Mkdir(filepath.Join(store.Dir(), "sub.pdf"), 0o750); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Open(context.Background(), "sub.pdf"); !errors.Is(err, ErrNotFound) {
		t.Errorf("directories must not be served, got %v", err)
	}
}

func TestDiskStore_CancelledContext(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Save(ctx, "1_a.pdf", strings.NewReader("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name, _ := StoredName(int64(i+1), "f.pdf")
			store.Save(ctx, name, strings.NewReader("x"))
			store.Has(name)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		name, _ := StoredName(int64(i+1), "f.pdf")
		if !store.Has(name) {
			t.Errorf("missing %s", name)
		}
	}
}
