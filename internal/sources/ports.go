package sources

import (
	"context"
	"fmt"
	"strings"

	"salesdash/internal/core"
)

// Ports for inbound table adapters.
type (
	// TableReader reads one raw table, header row first.
	// A missing file or sheet is reported wrapping core.ErrNotFound.
	TableReader interface {
		ReadTable(ctx context.Context) (core.Table, error)
	}
)

// Kind names a table reader implementation.
type Kind string

const (
	KindXLSX   Kind = "xlsx"
	KindCSV    Kind = "csv"
	KindSheets Kind = "sheets"
	KindMemory Kind = "memory"
)

// Location addresses a table, parsed from strings such as
// "xlsx:data/Current_Base.xlsx#Sheet1", "csv:data/Target.csv#windows-1252" or
// "sheets:1AbC...!Data!A:Z".
type Location struct {
	Kind Kind
	// Path is the file path, or the spreadsheet ID for sheets.
	Path string
	// Sheet is the worksheet name for xlsx, the A1 range for sheets,
	// or the text encoding for csv.
	Sheet string
}

// ParseLocation parses a "<kind>:<address>" string.
func ParseLocation(s string) (Location, error) {
	kind, rest, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || rest == "" {
		return Location{}, fmt.Errorf("invalid source location %q: expected <kind>:<address>", s)
	}
	loc := Location{Kind: Kind(strings.ToLower(kind))}
	switch loc.Kind {
	case KindXLSX, KindCSV:
		loc.Path, loc.Sheet, _ = strings.Cut(rest, "#")
	case KindMemory:
		loc.Path = rest
	case KindSheets:
		id, rng, ok := strings.Cut(rest, "!")
		if !ok || id == "" || rng == "" {
			return Location{}, fmt.Errorf("invalid sheets location %q: expected sheets:<spreadsheetID>!<range>", s)
		}
		loc.Path, loc.Sheet = id, rng
	default:
		return Location{}, fmt.Errorf("unsupported source kind %q", kind)
	}
	if loc.Path == "" {
		return Location{}, fmt.Errorf("invalid source location %q: empty path", s)
	}
	return loc, nil
}

func (l Location) String() string {
	switch {
	case l.Kind == KindSheets:
		return fmt.Sprintf("%s:%s!%s", l.Kind, l.Path, l.Sheet)
	case l.Sheet != "":
		return fmt.Sprintf("%s:%s#%s", l.Kind, l.Path, l.Sheet)
	default:
		return fmt.Sprintf("%s:%s", l.Kind, l.Path)
	}
}
