package backend

import (
	"context"

	"salesdash/internal/services"
	"salesdash/internal/sources"
	"salesdash/internal/sources/google"
	"salesdash/internal/sources/memory"
	"salesdash/internal/users"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result holds the readers and user store built from a Config.
type Result struct {
	Sources services.Sources
	Users   users.Store
	Cleanup CleanupFunc
}

// Factory builds the dashboard backends from configuration.
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Recent     sources.Location
	Historical sources.Location
	Target     sources.Location

	// Google Sheets specific
	Google google.Credentials

	// Memory backs "memory:" locations; required when one is used.
	Memory *memory.Store

	UserStore    UserStoreType
	UserCSVPath  string
	SQLiteDBPath string
}

// UserStoreType selects where credentials live.
type UserStoreType string

const (
	CSVUserStore    UserStoreType = "csv"
	SQLiteUserStore UserStoreType = "sqlite"
)

// String implements fmt.Stringer
func (t UserStoreType) String() string {
	return string(t)
}

// IsValid returns true if the user store type is valid
func (t UserStoreType) IsValid() bool {
	switch t {
	case CSVUserStore, SQLiteUserStore:
		return true
	default:
		return false
	}
}
