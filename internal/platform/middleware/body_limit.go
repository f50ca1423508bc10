package middleware

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicrecords/clinic/internal/platform/apperr"
)

// BodyLimit rejects request bodies larger than limit bytes with
// apperr.ErrPayloadTooLarge. The declared Content-Length is checked first;
// the body is also wrapped so chunked or lying clients are cut off while the
// handler reads it.
func BodyLimit(limit int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}

			if req.ContentLength > limit {
				return apperr.ErrPayloadTooLarge
			}

			req.Body = &limitedReadCloser{
				ReadCloser: req.Body,
				remaining:  limit,
			}

			return next(c)
		}
	}
}

// limitedReadCloser wraps an io.ReadCloser and returns an error once the
// read limit is exceeded.
type limitedReadCloser struct {
	io.ReadCloser
	remaining int64
	exceeded  bool
}

func (r *limitedReadCloser) Read(p []byte) (n int, err error) {
	if r.exceeded {
		return 0, apperr.ErrPayloadTooLarge
	}

	// read one byte past the limit to detect overflow
	toRead := int64(len(p))
	if toRead > r.remaining+1 {
		toRead = r.remaining + 1
	}

	n, err = r.ReadCloser.Read(p[:toRead])
	r.remaining -= int64(n)

	if r.remaining < 0 {
		r.exceeded = true
		return 0, apperr.ErrPayloadTooLarge
	}

	return n, err
}
