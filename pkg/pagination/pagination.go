package pagination

import (
	"math"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
	// MaxPage keeps (page-1)*per_page from overflowing int.
	MaxPage = math.MaxInt / MaxPerPage
)

// Params holds 1-indexed page parameters extracted from a request.
type Params struct {
	Page    int
	PerPage int
}

// FromContext reads page and per_page from the query string. Missing or
// non-numeric values fall back to the defaults; page < 1 becomes 1 and
// per_page is clamped to [1, MaxPerPage].
func FromContext(c echo.Context) Params {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	perPage, err := strconv.Atoi(c.QueryParam("per_page"))
	if err != nil {
		perPage = DefaultPerPage
	}
	return New(page, perPage)
}

// New normalizes raw page values: page is clamped to [1, MaxPage] and
// per_page to [1, MaxPerPage].
func New(page, perPage int) Params {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if perPage < 1 {
		perPage = 1
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return Params{Page: page, PerPage: perPage}
}

// Limit is the SQL LIMIT for this page.
func (p Params) Limit() int {
	return p.PerPage
}

// Offset is the SQL OFFSET for this page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}
