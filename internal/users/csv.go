package users

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"salesdash/internal/core"
	"salesdash/internal/sources/csvfile"
)

// Column headers of the users file. The password header is matched
// case-insensitively.
const (
	HeaderName     = "User Name"
	HeaderPassword = "Password"
	HeaderAccess   = "Access"
)

var (
	_ Store  = (*CSVStore)(nil)
	_ Lister = (*CSVStore)(nil)
)

// CSVStore keeps credentials in a CSV file. Every update reads the whole
// file, changes one row and writes the whole file back; concurrent
// processes race with last-writer-wins semantics.
type CSVStore struct {
	path string
	mu   sync.Mutex
}

func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

type userFile struct {
	rows                   [][]string
	name, password, access int
}

func (s *CSVStore) load() (userFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return userFile{}, fmt.Errorf("users file %s: %w", s.path, core.ErrNotFound)
		}
		return userFile{}, fmt.Errorf("read users file: %w", err)
	}
	rows, err := csvfile.Decode(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	if err != nil {
		return userFile{}, fmt.Errorf("parse users file: %w", err)
	}
	if len(rows) == 0 {
		return userFile{}, fmt.Errorf("users file %s has no header", s.path)
	}

	f := userFile{rows: rows, name: -1, password: -1, access: -1}
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		switch {
		case h == HeaderName:
			f.name = i
		case strings.EqualFold(h, HeaderPassword):
			f.password = i
		case h == HeaderAccess:
			f.access = i
		}
	}
	var missing []string
	if f.name < 0 {
		missing = append(missing, HeaderName)
	}
	if f.password < 0 {
		missing = append(missing, HeaderPassword)
	}
	if len(missing) > 0 {
		return userFile{}, &core.SchemaError{Source: s.path, Missing: missing}
	}
	return f, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func (s *CSVStore) FindByCredentials(_ context.Context, username, password string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return User{}, err
	}
	for _, row := range f.rows[1:] {
		if SameUser(cell(row, f.name), username) && SamePassword(cell(row, f.password), password) {
			return User{Name: strings.TrimSpace(cell(row, f.name)), Access: strings.TrimSpace(cell(row, f.access))}, nil
		}
	}
	return User{}, ErrInvalidCredentials
}

func (s *CSVStore) UpdatePassword(_ context.Context, username, newPassword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}
	found := false
	for _, row := range f.rows[1:] {
		if SameUser(cell(row, f.name), username) && f.password < len(row) {
			row[f.password] = newPassword
			found = true
		}
	}
	if !found {
		return ErrUserNotFound
	}
	return s.write(f.rows)
}

func (s *CSVStore) List(_ context.Context) ([]Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]Credential, 0, len(f.rows)-1)
	for _, row := range f.rows[1:] {
		name := strings.TrimSpace(cell(row, f.name))
		if name == "" {
			continue
		}
		out = append(out, Credential{
			Name:     name,
			Password: strings.TrimSpace(cell(row, f.password)),
			Access:   strings.TrimSpace(cell(row, f.access)),
		})
	}
	return out, nil
}

// write replaces the file through a temporary sibling and a rename.
func (s *CSVStore) write(rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("encode users file: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".users-*.csv")
	if err != nil {
		return fmt.Errorf("write users file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write users file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write users file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace users file: %w", err)
	}
	return nil
}
