package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"salesdash/internal/core"
	"salesdash/internal/services"
)

// parseFilters reads the sidebar selection. A missing value or "All"
// leaves the dimension unconstrained.
func parseFilters(r *http.Request) core.Filters {
	q := r.URL.Query()
	return core.Filters{
		Region:   filterValue(q.Get("region")),
		Quarter:  filterValue(q.Get("quarter")),
		Business: filterValue(q.Get("business")),
	}
}

func filterValue(v string) string {
	v = sanitizeInput(v)
	if strings.EqualFold(v, services.AllOption) {
		return ""
	}
	return v
}

// parseDateParam parses an optional YYYY-MM-DD query value. An empty
// value yields the zero time.
func parseDateParam(r *http.Request, name string) (time.Time, error) {
	v := sanitizeInput(r.URL.Query().Get(name))
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a date in YYYY-MM-DD format", name)
	}
	return t, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
