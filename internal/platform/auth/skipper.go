package auth

import (
	"github.com/labstack/echo/v4"
)

// NewSkipper returns a Skipper that bypasses authentication for the given
// route patterns (as registered with echo, e.g. "/api/records/download/:filename").
// Matching is on c.Path(), so path parameters never widen the match.
func NewSkipper(routes ...string) func(echo.Context) bool {
	public := make(map[string]bool, len(routes))
	for _, r := range routes {
		public[r] = true
	}
	return func(c echo.Context) bool {
		return public[c.Path()]
	}
}
