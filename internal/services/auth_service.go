package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"salesdash/internal/log"
	"salesdash/internal/users"
)

var (
	ErrPasswordMismatch = errors.New("new password and confirmation do not match")
	ErrEmptyPassword    = errors.New("new password must not be empty")
)

// AuthService verifies dashboard users and changes their passwords.
type AuthService struct {
	store  users.Store
	logger *log.Logger
}

func NewAuthService(store users.Store, logger *log.Logger) *AuthService {
	if logger == nil {
		logger = log.Discard()
	}
	return &AuthService{store: store, logger: logger.WithComponent(log.ComponentUsers)}
}

// Login returns the user matching name and password.
func (s *AuthService) Login(ctx context.Context, name, password string) (users.User, error) {
	u, err := s.store.FindByCredentials(ctx, name, password)
	if err != nil {
		s.logger.WarnContext(ctx, "Login rejected",
			log.FieldOperation, log.OpLogin,
			log.FieldUser, strings.TrimSpace(name),
			log.FieldError, err)
		return users.User{}, err
	}
	s.logger.InfoContext(ctx, "User logged in",
		log.FieldOperation, log.OpLogin,
		log.FieldUser, u.Name)
	return u, nil
}

// ChangePassword replaces the password of name. The current password
// must match, and the new one must equal its confirmation and be
// non-empty once trimmed.
func (s *AuthService) ChangePassword(ctx context.Context, name, current, next, confirm string) error {
	if _, err := s.store.FindByCredentials(ctx, name, current); err != nil {
		s.logger.WarnContext(ctx, "Password change rejected",
			log.FieldOperation, log.OpPassword,
			log.FieldUser, strings.TrimSpace(name),
			log.FieldError, err)
		return err
	}
	if next != confirm {
		return ErrPasswordMismatch
	}
	next = strings.TrimSpace(next)
	if next == "" {
		return ErrEmptyPassword
	}
	if err := s.store.UpdatePassword(ctx, name, next); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	s.logger.InfoContext(ctx, "Password changed",
		log.FieldOperation, log.OpPassword,
		log.FieldUser, strings.TrimSpace(name))
	return nil
}
