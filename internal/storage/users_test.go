package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"salesdash/internal/users"
)

func newRepo(t *testing.T) *UserRepository {
	t.Helper()
	repo, err := NewUserRepository(filepath.Join(t.TempDir(), "db", "users.db"), WithHashCost(bcrypt.MinCost))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

type staticLister []users.Credential

func (s staticLister) List(context.Context) ([]users.Credential, error) { return s, nil }

func TestUserRepositoryCredentials(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, users.Credential{Name: " Asha ", Password: "secret", Access: "admin"}))

	u, err := repo.FindByCredentials(ctx, "ASHA", " secret ")
	require.NoError(t, err)
	assert.Equal(t, users.User{Name: "Asha", Access: "admin"}, u)

	_, err = repo.FindByCredentials(ctx, "asha", "Secret")
	assert.ErrorIs(t, err, users.ErrInvalidCredentials)
	_, err = repo.FindByCredentials(ctx, "ravi", "secret")
	assert.ErrorIs(t, err, users.ErrInvalidCredentials)
}

func TestUserRepositoryUpdatePassword(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, users.Credential{Name: "Ravi", Password: "old", Access: "viewer"}))

	require.NoError(t, repo.UpdatePassword(ctx, "ravi", "new"))
	_, err := repo.FindByCredentials(ctx, "Ravi", "old")
	assert.ErrorIs(t, err, users.ErrInvalidCredentials)
	_, err = repo.FindByCredentials(ctx, "Ravi", "new")
	assert.NoError(t, err)

	assert.ErrorIs(t, repo.UpdatePassword(ctx, "ghost", "x"), users.ErrUserNotFound)
}

func TestUserRepositoryImport(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	src := staticLister{
		{Name: "Asha", Password: "a", Access: "admin"},
		{Name: "Ravi", Password: "r", Access: "viewer"},
	}

	n, err := repo.Import(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = repo.Import(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []users.Credential{{Name: "Asha", Access: "admin"}, {Name: "Ravi", Access: "viewer"}}, list)

	_, err = repo.FindByCredentials(ctx, "ravi", "r")
	assert.NoError(t, err)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.db")
	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))
}
