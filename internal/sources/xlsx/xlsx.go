// Package xlsx reads sales tables from Excel workbooks.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/xuri/excelize/v2"

	"salesdash/internal/core"
	ports "salesdash/internal/sources"
)

var _ ports.TableReader = (*Reader)(nil)

// Reader reads one worksheet. Cells are read raw, so dates arrive as
// Excel serial numbers and amounts without display formatting.
type Reader struct {
	path  string
	sheet string
}

// New returns a reader for sheet of the workbook at path. An empty sheet
// selects the first worksheet.
func New(path, sheet string) *Reader {
	return &Reader{path: path, sheet: sheet}
}

func (r *Reader) ReadTable(ctx context.Context) (core.Table, error) {
	if err := ctx.Err(); err != nil {
		return core.Table{}, err
	}
	f, err := excelize.OpenFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return core.Table{}, fmt.Errorf("open %s: %w", r.path, core.ErrNotFound)
		}
		return core.Table{}, fmt.Errorf("open %s: %w", r.path, err)
	}
	defer f.Close()

	sheet := r.sheet
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return core.Table{}, fmt.Errorf("workbook %s has no sheets: %w", r.path, core.ErrNotFound)
		}
		sheet = list[0]
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return core.Table{}, fmt.Errorf("sheet %q in %s: %w", sheet, r.path, core.ErrNotFound)
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return core.Table{}, fmt.Errorf("read sheet %q in %s: %w", sheet, r.path, err)
	}
	return core.NewTable(r.path, rows), nil
}
