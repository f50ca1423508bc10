package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinicrecords/clinic/internal/platform/apperr"
)

func TestBodyLimit_AllowsSmallBody(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/patients", strings.NewReader(`{"name":"Ana"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := func(c echo.Context) error {
		b, err := io.ReadAll(c.Request().Body)
		if err != nil {
			t.Fatalf("failed to read body: %v", err)
		}
		if len(b) == 0 {
			t.Error("expected non-empty body")
		}
		called = true
		return c.NoContent(http.StatusCreated)
	}

	if err := BodyLimit(1 << 20)(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("handler was not called")
	}
}

func TestBodyLimit_RejectsByContentLength(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/records", strings.NewReader(strings.Repeat("a", 100)))
	c := e.NewContext(req, httptest.NewRecorder())

	called := false
	err := BodyLimit(10)(func(echo.Context) error {
		called = true
		return nil
	})(c)

	if !errors.Is(err, apperr.ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
	if called {
		t.Error("handler should not run for an oversized body")
	}
}

func TestBodyLimit_RejectsWhileReading(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/records", strings.NewReader(strings.Repeat("a", 100)))
	// unknown length, as with chunked uploads
	req.ContentLength = -1
	c := e.NewContext(req, httptest.NewRecorder())

	var readErr error
	err := BodyLimit(10)(func(c echo.Context) error {
		_, readErr = io.ReadAll(c.Request().Body)
		return readErr
	})(c)

	if !errors.Is(readErr, apperr.ErrPayloadTooLarge) {
		t.Fatalf("expected read to fail with ErrPayloadTooLarge, got %v", readErr)
	}
	if !errors.Is(err, apperr.ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestBodyLimit_ExactLimit(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789"))
	req.ContentLength = -1
	c := e.NewContext(req, httptest.NewRecorder())

	err := BodyLimit(10)(func(c echo.Context) error {
		b, err := io.ReadAll(c.Request().Body)
		if len(b) != 10 {
			t.Errorf("read %d bytes, want 10", len(b))
		}
		return err
	})(c)
	if err != nil {
		t.Fatalf("body at the limit should pass, got %v", err)
	}
}

func TestBodyLimit_NoBody(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if err := BodyLimit(1)(func(echo.Context) error { return nil })(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
