package backend

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"salesdash/internal/core"
	"salesdash/internal/log"
	"salesdash/internal/services"
	"salesdash/internal/sources"
	"salesdash/internal/sources/csvfile"
	"salesdash/internal/sources/google"
	"salesdash/internal/sources/xlsx"
	"salesdash/internal/storage"
	"salesdash/internal/users"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentSources)}
}

// Create implements Factory.Create
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var src services.Sources
	var err error
	if src.Recent, err = f.NewReader(ctx, config.Recent, config); err != nil {
		return nil, fmt.Errorf("recent source: %w", err)
	}
	if src.Historical, err = f.NewReader(ctx, config.Historical, config); err != nil {
		return nil, fmt.Errorf("historical source: %w", err)
	}
	if src.Targets, err = f.NewReader(ctx, config.Target, config); err != nil {
		return nil, fmt.Errorf("target source: %w", err)
	}

	store, cleanup, err := f.createUserStore(ctx, config)
	if err != nil {
		return nil, err
	}
	return &Result{Sources: src, Users: store, Cleanup: cleanup}, nil
}

// NewReader builds the table reader for loc.
func (f *DefaultFactory) NewReader(ctx context.Context, loc sources.Location, config Config) (sources.TableReader, error) {
	f.logger.Info("Configured source", log.FieldLocation, loc.String())
	switch loc.Kind {
	case sources.KindXLSX:
		return xlsx.New(loc.Path, loc.Sheet), nil
	case sources.KindCSV:
		r := csvfile.New(loc.Path)
		if loc.Sheet == "" {
			return r, nil
		}
		encoded, err := r.WithEncoding(loc.Sheet)
		if err != nil {
			return nil, err
		}
		return encoded, nil
	case sources.KindSheets:
		return google.New(ctx, loc.Path, loc.Sheet, config.Google, f.logger)
	case sources.KindMemory:
		if config.Memory == nil {
			return nil, fmt.Errorf("memory location %s needs a memory store", loc)
		}
		return config.Memory.Reader(loc.Path), nil
	default:
		return nil, fmt.Errorf("unsupported source kind: %s", loc.Kind)
	}
}

func (f *DefaultFactory) createUserStore(ctx context.Context, config Config) (users.Store, CleanupFunc, error) {
	switch config.UserStore {
	case CSVUserStore:
		f.logger.Info("Initialized CSV user store", "path", config.UserCSVPath)
		return users.NewCSVStore(config.UserCSVPath), nil, nil
	case SQLiteUserStore:
		return f.createSQLiteUserStore(ctx, config)
	default:
		return nil, nil, fmt.Errorf("unsupported user store: %s", config.UserStore)
	}
}

// createSQLiteUserStore opens the database and seeds it from the users
// CSV file when one is present.
func (f *DefaultFactory) createSQLiteUserStore(ctx context.Context, config Config) (users.Store, CleanupFunc, error) {
	repo, err := storage.NewUserRepository(config.SQLiteDBPath, storage.WithLogger(f.logger))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize SQLite user store: %w", err)
	}

	seeded := 0
	if config.UserCSVPath != "" {
		if _, statErr := os.Stat(config.UserCSVPath); statErr == nil {
			seeded, err = repo.Import(ctx, users.NewCSVStore(config.UserCSVPath))
			if err != nil && !errors.Is(err, core.ErrNotFound) {
				repo.Close()
				return nil, nil, fmt.Errorf("seed users from %s: %w", config.UserCSVPath, err)
			}
		} else if !errors.Is(statErr, fs.ErrNotExist) {
			f.logger.Warn("Cannot stat users CSV, skipping seed", log.FieldError, statErr)
		}
	}

	f.logger.Info("Initialized SQLite user store",
		"db_path", config.SQLiteDBPath,
		"seeded", seeded)
	return repo, repo.Close, nil
}
