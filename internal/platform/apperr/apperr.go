// Package apperr defines the error taxonomy shared by every layer of the API
// and the echo error handler that turns it into JSON responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrDuplicateCRM       = errors.New("crm already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMissingToken       = errors.New("token is missing")
	ErrInvalidToken       = errors.New("token is invalid")
	ErrExpiredToken       = errors.New("token has expired")
	ErrNotFound           = errors.New("resource not found")
	ErrStorage            = errors.New("storage failure")
	ErrPayloadTooLarge    = errors.New("request body too large")
	ErrRateLimited        = errors.New("rate limit exceeded")
)

// Validation wraps ErrValidation with a field-specific message.
func Validation(format string, args ...any) error {
	return &detailed{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

// Storage wraps a persistence failure so it maps to StorageError while the
// underlying cause stays available to errors.Is/As.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &detailed{kind: ErrStorage, msg: op, cause: err}
}

type detailed struct {
	kind  error
	msg   string
	cause error
}

func (e *detailed) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *detailed) Unwrap() []error {
	if e.cause != nil {
		return []error{e.kind, e.cause}
	}
	return []error{e.kind}
}

// Response is the JSON body of every error reply.
type Response struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type mapping struct {
	err    error
	status int
	code   string
}

// Order matters: the first sentinel matched by errors.Is wins.
var mappings = []mapping{
	{ErrValidation, http.StatusBadRequest, "ValidationError"},
	{ErrDuplicateEmail, http.StatusBadRequest, "DuplicateEmail"},
	{ErrDuplicateCRM, http.StatusBadRequest, "DuplicateCRM"},
	{ErrInvalidCredentials, http.StatusUnauthorized, "InvalidCredentials"},
	{ErrMissingToken, http.StatusUnauthorized, "MissingToken"},
	{ErrExpiredToken, http.StatusUnauthorized, "ExpiredToken"},
	{ErrInvalidToken, http.StatusUnauthorized, "InvalidToken"},
	{ErrNotFound, http.StatusNotFound, "NotFound"},
	{ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, "PayloadTooLarge"},
	{ErrRateLimited, http.StatusTooManyRequests, "RateLimited"},
	{ErrStorage, http.StatusInternalServerError, "StorageError"},
}

// Resolve returns the HTTP status, error code and client-facing message for
// err. When production is true, 5xx messages never carry the wrapped cause
// and 4xx messages drop the operation context added by fmt.Errorf wrapping,
// keeping only the sentinel text or the validation detail.
func Resolve(err error, production bool) (int, Response) {
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			msg := err.Error()
			if production {
				msg = publicMessage(err, m)
			}
			return m.status, Response{Error: m.code, Message: msg}
		}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		return he.Code, Response{Error: codeForStatus(he.Code), Message: msg}
	}

	msg := "internal server error"
	if !production {
		msg = err.Error()
	}
	return http.StatusInternalServerError, Response{Error: "StorageError", Message: msg}
}

func publicMessage(err error, m mapping) string {
	if m.status >= http.StatusInternalServerError {
		return "internal server error"
	}
	var d *detailed
	if m.err == ErrValidation && errors.As(err, &d) && d.kind == ErrValidation {
		return d.msg
	}
	return m.err.Error()
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "ValidationError"
	case http.StatusUnauthorized:
		return "InvalidToken"
	case http.StatusNotFound:
		return "NotFound"
	case http.StatusMethodNotAllowed:
		return "MethodNotAllowed"
	case http.StatusRequestEntityTooLarge:
		return "PayloadTooLarge"
	case http.StatusTooManyRequests:
		return "RateLimited"
	case http.StatusGatewayTimeout:
		return "Timeout"
	}
	if status >= http.StatusInternalServerError {
		return "StorageError"
	}
	return http.StatusText(status)
}

// HTTPErrorHandler renders errors returned by handlers and middleware.
func HTTPErrorHandler(logger zerolog.Logger, production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := Resolve(err, production)
		if status >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("write error response")
		}
	}
}
