package backend

import (
	"errors"
	"fmt"

	"salesdash/internal/config"
	"salesdash/internal/sources"
	"salesdash/internal/sources/google"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	storeType := UserStoreType(appConfig.UserStore)
	if !storeType.IsValid() {
		return Config{}, fmt.Errorf("invalid user store in config: %s", appConfig.UserStore)
	}

	cfg := Config{
		Google: google.Credentials{
			JSON: appConfig.GoogleServiceAccountJSON,
			File: appConfig.GoogleServiceAccountFile,
		},
		UserStore:    storeType,
		UserCSVPath:  appConfig.UserCSVPath,
		SQLiteDBPath: appConfig.SQLiteDBPath,
	}

	var err error
	if cfg.Recent, err = sources.ParseLocation(appConfig.RecentSource); err != nil {
		return Config{}, fmt.Errorf("recent source: %w", err)
	}
	if cfg.Historical, err = sources.ParseLocation(appConfig.HistoricalSource); err != nil {
		return Config{}, fmt.Errorf("historical source: %w", err)
	}
	if cfg.Target, err = sources.ParseLocation(appConfig.TargetSource); err != nil {
		return Config{}, fmt.Errorf("target source: %w", err)
	}
	return cfg, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.UserStore.IsValid() {
		return fmt.Errorf("invalid user store: %s", c.UserStore)
	}

	switch c.UserStore {
	case SQLiteUserStore:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite user store")
		}
	case CSVUserStore:
		if c.UserCSVPath == "" {
			return errors.New("users CSV path is required for csv user store")
		}
	}

	for _, loc := range []sources.Location{c.Recent, c.Historical, c.Target} {
		if loc.Kind == sources.KindMemory && c.Memory == nil {
			return fmt.Errorf("memory location %s needs a memory store", loc)
		}
	}
	return nil
}
