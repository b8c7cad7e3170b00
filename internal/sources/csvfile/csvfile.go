// Package csvfile reads tables from delimited text files.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"salesdash/internal/core"
	ports "salesdash/internal/sources"
)

var _ ports.TableReader = (*Reader)(nil)

// Reader reads a whole CSV file into a table.
type Reader struct {
	path     string
	encoding encoding.Encoding
}

// New returns a reader for the file at path. Files are decoded as UTF-8
// with an optional byte order mark.
func New(path string) *Reader {
	return &Reader{path: path, encoding: unicode.UTF8BOM}
}

// WithEncoding selects the text encoding by name: "utf-8" (default),
// "windows-1252" or "iso-8859-1".
func (r *Reader) WithEncoding(name string) (*Reader, error) {
	enc, err := Encoding(name)
	if err != nil {
		return nil, err
	}
	return &Reader{path: r.path, encoding: enc}, nil
}

// Encoding resolves an encoding name.
func Encoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8BOM, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	case "iso-8859-1", "latin1":
		return charmap.ISO8859_1, nil
	}
	return nil, fmt.Errorf("unsupported csv encoding %q", name)
}

func (r *Reader) ReadTable(ctx context.Context) (core.Table, error) {
	if err := ctx.Err(); err != nil {
		return core.Table{}, err
	}
	f, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return core.Table{}, fmt.Errorf("open %s: %w", r.path, core.ErrNotFound)
		}
		return core.Table{}, fmt.Errorf("open %s: %w", r.path, err)
	}
	defer f.Close()

	values, err := Decode(transform.NewReader(f, r.encoding.NewDecoder()))
	if err != nil {
		return core.Table{}, fmt.Errorf("parse %s: %w", r.path, err)
	}
	return core.NewTable(r.path, values), nil
}

// Decode reads every record of a CSV stream. Rows may have differing
// field counts.
func Decode(in io.Reader) ([][]string, error) {
	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr.ReadAll()
}
