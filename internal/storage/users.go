// Package storage is the SQLite credential store. Passwords are kept as
// bcrypt hashes; usernames are unique ignoring case and surrounding space.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"salesdash/internal/log"
	"salesdash/internal/users"
)

var (
	_ users.Store  = (*UserRepository)(nil)
	_ users.Lister = (*UserRepository)(nil)
)

// UserRepository stores credentials in SQLite.
type UserRepository struct {
	db     *sql.DB
	cost   int
	logger *log.Logger
}

// Option configures a UserRepository.
type Option func(*UserRepository)

// WithHashCost sets the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(r *UserRepository) { r.cost = cost }
}

// WithLogger sets the repository logger.
func WithLogger(l *log.Logger) Option {
	return func(r *UserRepository) { r.logger = l }
}

func NewUserRepository(dbPath string, opts ...Option) (*UserRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	r := &UserRepository{db: db, cost: bcrypt.DefaultCost, logger: log.Discard()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent(log.ComponentStorage)
	return r, nil
}

func (r *UserRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (r *UserRepository) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(password)), r.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func (r *UserRepository) FindByCredentials(ctx context.Context, username, password string) (users.User, error) {
	var (
		u    users.User
		hash string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT name, access, password_hash FROM users WHERE name_key = ?`, nameKey(username)).
		Scan(&u.Name, &u.Access, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return users.User{}, users.ErrInvalidCredentials
	}
	if err != nil {
		return users.User{}, fmt.Errorf("find user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(strings.TrimSpace(password))) != nil {
		return users.User{}, users.ErrInvalidCredentials
	}
	return u, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, username, newPassword string) error {
	hash, err := r.hash(newPassword)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE name_key = ?`,
		hash, nameKey(username))
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n == 0 {
		return users.ErrUserNotFound
	}
	r.logger.InfoContext(ctx, "Password updated", log.FieldUser, strings.TrimSpace(username))
	return nil
}

// Upsert creates or replaces a user.
func (r *UserRepository) Upsert(ctx context.Context, c users.Credential) error {
	hash, err := r.hash(c.Password)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (name, name_key, password_hash, access) VALUES (?, ?, ?, ?)
		ON CONFLICT(name_key) DO UPDATE SET
			name = excluded.name,
			password_hash = excluded.password_hash,
			access = excluded.access,
			updated_at = CURRENT_TIMESTAMP`,
		strings.TrimSpace(c.Name), nameKey(c.Name), hash, strings.TrimSpace(c.Access))
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", c.Name, err)
	}
	return nil
}

// Import copies every user of src into the repository in one transaction.
func (r *UserRepository) Import(ctx context.Context, src users.Lister) (int, error) {
	creds, err := src.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list source users: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO users (name, name_key, password_hash, access) VALUES (?, ?, ?, ?)
		ON CONFLICT(name_key) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare import: %w", err)
	}
	defer stmt.Close()

	imported := 0
	for _, c := range creds {
		hash, err := r.hash(c.Password)
		if err != nil {
			return 0, err
		}
		res, err := stmt.ExecContext(ctx, strings.TrimSpace(c.Name), nameKey(c.Name), hash, strings.TrimSpace(c.Access))
		if err != nil {
			return 0, fmt.Errorf("import user %s: %w", c.Name, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			imported++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	r.logger.InfoContext(ctx, "Users imported", "imported", imported, "total", len(creds))
	return imported, nil
}

// List returns users without their password hashes.
func (r *UserRepository) List(ctx context.Context) ([]users.Credential, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, access FROM users ORDER BY name_key`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []users.Credential
	for rows.Next() {
		var c users.Credential
		if err := rows.Scan(&c.Name, &c.Access); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
