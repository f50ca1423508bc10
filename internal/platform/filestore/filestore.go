// Package filestore keeps medical record attachments. It defines the Store
// interface, a local-disk implementation used by the server and an
// in-memory implementation for tests, plus the naming rules every stored
// file follows.
package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/clinicrecords/clinic/internal/platform/apperr"
)

var (
	// ErrNotFound wraps apperr.ErrNotFound so handlers map it to 404.
	ErrNotFound = fmt.Errorf("file %w", apperr.ErrNotFound)
	// ErrInvalidName is returned for names that do not survive sanitizing.
	ErrInvalidName = errors.New("invalid file name")
)

// AllowedExtensions lists the attachment types accepted on record upload.
var AllowedExtensions = map[string]bool{
	"pdf":  true,
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"docx": true,
}

// Store is the contract for attachment storage backends. Names passed in are
// already sanitized stored names (see StoredName).
type Store interface {
	Save(ctx context.Context, name string, content io.Reader) (int64, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Remove(ctx context.Context, name string) error
}

// Allowed reports whether filename carries an extension from
// AllowedExtensions, compared case-insensitively.
func Allowed(filename string) bool {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	if ext == "" {
		return false
	}
	return AllowedExtensions[strings.ToLower(ext)]
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeName reduces a client-supplied file name to a single safe path
// component: separators become underscores, anything outside [A-Za-z0-9_.-]
// is dropped and leading dots or underscores are trimmed. It returns "" when
// nothing usable remains.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.ReplaceAll(name, "/", " ")
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")
	if name == "." || name == ".." {
		return ""
	}
	return name
}

// StoredName is the on-disk name of the attachment of record recordID.
func StoredName(recordID int64, original string) (string, error) {
	name := SanitizeName(fmt.Sprintf("%d_%s", recordID, original))
	if name == "" || !Allowed(name) {
		return "", ErrInvalidName
	}
	return name, nil
}

// ContentType guesses the media type served for a stored name.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// MemoryStore is a thread-safe, in-memory Store for tests and development.
type MemoryStore struct {
	mu    sync.RWMutex
	files map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string][]byte)}
}

func (s *MemoryStore) Save(_ context.Context, name string, content io.Reader) (int64, error) {
	if SanitizeName(name) != name || name == "" {
		return 0, ErrInvalidName
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return 0, fmt.Errorf("reading content: %w", err)
	}

	s.mu.Lock()
	s.files[name] = data
	s.mu.Unlock()
	return int64(len(data)), nil
}

func (s *MemoryStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	s.mu.RLock()
	data, ok := s.files[name]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStore) Remove(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[name]; !ok {
		return ErrNotFound
	}
	delete(s.files, name)
	return nil
}

// Has reports whether name is stored.
func (s *MemoryStore) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.files[name]
	return ok
}
