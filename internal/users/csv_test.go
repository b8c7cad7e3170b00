package users

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdash/internal/core"
)

func writeUsers(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const usersCSV = "User Name,password,Access\nAsha, secret ,admin\nRavi,pw2,viewer\n"

func TestFindByCredentials(t *testing.T) {
	s := NewCSVStore(writeUsers(t, usersCSV))
	ctx := context.Background()

	u, err := s.FindByCredentials(ctx, "  asha ", "secret")
	require.NoError(t, err)
	assert.Equal(t, User{Name: "Asha", Access: "admin"}, u)

	_, err = s.FindByCredentials(ctx, "Asha", "SECRET")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.FindByCredentials(ctx, "nobody", "pw2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpdatePasswordRewritesWholeFile(t *testing.T) {
	path := writeUsers(t, usersCSV)
	s := NewCSVStore(path)
	ctx := context.Background()

	require.NoError(t, s.UpdatePassword(ctx, "RAVI", "new-pw"))

	_, err := s.FindByCredentials(ctx, "ravi", "pw2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	u, err := s.FindByCredentials(ctx, "ravi", "new-pw")
	require.NoError(t, err)
	assert.Equal(t, "viewer", u.Access)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "User Name,password,Access\n"))
	assert.Contains(t, string(data), "Asha,secret ,admin")

	assert.ErrorIs(t, s.UpdatePassword(ctx, "ghost", "x"), ErrUserNotFound)
}

func TestList(t *testing.T) {
	s := NewCSVStore(writeUsers(t, usersCSV+",,\n"))
	creds, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Credential{
		{Name: "Asha", Password: "secret", Access: "admin"},
		{Name: "Ravi", Password: "pw2", Access: "viewer"},
	}, creds)
}

func TestCSVStoreErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewCSVStore(filepath.Join(t.TempDir(), "none.csv")).FindByCredentials(ctx, "a", "b")
	assert.True(t, errors.Is(err, core.ErrNotFound))

	_, err = NewCSVStore(writeUsers(t, "Login,Access\nx,y\n")).FindByCredentials(ctx, "x", "y")
	assert.True(t, errors.Is(err, core.ErrSchema))
}
