// Package users defines the credential store the dashboard logs in
// against. The core only ever finds a user by credentials and overwrites
// a password; it does not own the store's schema.
package users

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("user not found")
)

// User is an authenticated user.
type User struct {
	Name   string
	Access string
}

// Credential is one stored row, used when moving users between stores.
type Credential struct {
	Name     string
	Password string
	Access   string
}

// Store is the credential store port.
type Store interface {
	// FindByCredentials returns the user whose name and password match.
	FindByCredentials(ctx context.Context, username, password string) (User, error)
	// UpdatePassword overwrites the password of username.
	UpdatePassword(ctx context.Context, username, newPassword string) error
}

// Lister is implemented by stores that can enumerate their rows.
type Lister interface {
	List(ctx context.Context) ([]Credential, error)
}

// SameUser compares usernames trimmed and case-insensitively.
func SameUser(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// SamePassword compares passwords trimmed and exactly.
func SamePassword(a, b string) bool {
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}
