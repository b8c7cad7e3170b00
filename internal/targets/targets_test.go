package targets

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdash/internal/core"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func targetTable() core.Table {
	return core.NewTable("Target.csv", [][]string{
		{" TYPE ", "REG", "ZONE", "month name", "TARGET_CR"},
		{"BAREA", "LOLH", "", "Jan", "30000000"},
		{"barea ", "LOSH", "", "Feb", "15000000"},
		{"REGION", "DELHI", "", "Jan", "20000000"},
		{"FILE TYPE", "FIT", "LOLH", "Jan", "5000000"},
		{"FILE TYPE", "GIT", "lolh", "Jan", "10000000"},
		{"OTHER", "X", "", "Jan", "n/a"},
	})
}

func TestLoadScalesBaseUnits(t *testing.T) {
	l := NewLoader(DefaultSchema(), nil)
	tbl, err := l.Load(context.Background(), targetTable())
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 6)
	assert.True(t, tbl.Scaled)
	assert.True(t, tbl.HasType)
	assert.True(t, tbl.HasZone)

	assert.True(t, tbl.Rows[1].Amount.Equal(d("1.5")), "got %s", tbl.Rows[1].Amount)
	assert.True(t, tbl.Rows[1].Raw.Equal(d("15000000")))
	assert.Equal(t, "BAREA", tbl.Rows[1].Type)
	assert.Equal(t, "Feb", tbl.Rows[1].Month)
	assert.Equal(t, "FIT", tbl.Rows[3].FileType)
	assert.True(t, tbl.Rows[5].Amount.IsZero())
}

func TestLoadKeepsCroreUnits(t *testing.T) {
	raw := core.NewTable("t", [][]string{
		{"Region", "Month", "Target"},
		{"LOLH", "Jan", "5"},
		{"LOSH", "Jan", "10000000"},
	})
	tbl, err := NewLoader(DefaultSchema(), nil).Load(context.Background(), raw)
	require.NoError(t, err)
	assert.False(t, tbl.Scaled)
	assert.True(t, tbl.Rows[0].Amount.Equal(d("5")))
	assert.True(t, tbl.Rows[1].Amount.Equal(d("10000000")))
	assert.False(t, tbl.HasType)
}

func TestLoadMissingColumns(t *testing.T) {
	raw := core.NewTable("Target.csv", [][]string{
		{"Region", "Amount"},
		{"LOLH", "5"},
	})
	tbl, err := NewLoader(DefaultSchema(), nil).Load(context.Background(), raw)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrSchema))

	var schemaErr *core.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{ColMonth, ColAmount}, schemaErr.Missing)
	assert.True(t, tbl.Empty())
}

func TestMatch(t *testing.T) {
	ctx := context.Background()
	l := NewLoader(DefaultSchema(), nil)
	tbl, err := l.Load(ctx, targetTable())
	require.NoError(t, err)

	barea := l.Match(ctx, tbl, " barea")
	require.Len(t, barea, 2)
	assert.Len(t, l.Match(ctx, tbl, CategoryRegion), 1)
	assert.Len(t, l.Match(ctx, tbl, CategoryFileType), 2)
	assert.Empty(t, l.Match(ctx, tbl, "UNKNOWN"))

	assert.True(t, For(barea, "lolh", "JAN").Equal(d("3")))
	assert.True(t, For(barea, "LOLH", "Feb").IsZero())
	assert.True(t, For(barea, "LOSH", "").Equal(d("1.5")))
	assert.True(t, Total(barea).Equal(d("4.5")))

	byMonth := Sums(barea, ByMonth)
	assert.True(t, byMonth["JAN"].Equal(d("3")))
	assert.True(t, byMonth["FEB"].Equal(d("1.5")))

	lolh := InZone(l.Match(ctx, tbl, CategoryFileType), "LOLH")
	require.Len(t, lolh, 2)
	byType := Sums(lolh, ByFileType)
	assert.True(t, byType["FIT"].Equal(d("0.5")))
	assert.True(t, byType["GIT"].Equal(d("1")))
}

func TestMatchWithoutTypeColumnReturnsAll(t *testing.T) {
	ctx := context.Background()
	raw := core.NewTable("t", [][]string{
		{"Region", "Month", "Target Amount"},
		{"LOLH", "Jan", "5"},
		{"DELHI", "Jan", "7"},
	})
	l := NewLoader(DefaultSchema(), nil)
	tbl, err := l.Load(ctx, raw)
	require.NoError(t, err)

	for _, c := range []string{CategoryBArea, CategoryRegion, CategoryFileType} {
		assert.Len(t, l.Match(ctx, tbl, c), 2, c)
	}
}

func TestExplicitFileTypeColumn(t *testing.T) {
	ctx := context.Background()
	raw := core.NewTable("t", [][]string{
		{"Category", "Region", "Zone", "FILE_TYPE", "Month", "Target"},
		{"FILE TYPE", "North", "LTDM", "GIT", "Mar", "2"},
	})
	l := NewLoader(Schema{TypeColumn: "Category", ZoneColumn: "Zone", FileTypeColumn: "FILE_TYPE"}, nil)
	tbl, err := l.Load(ctx, raw)
	require.NoError(t, err)

	rows := InZone(l.Match(ctx, tbl, CategoryFileType), "ltdm")
	require.Len(t, rows, 1)
	assert.Equal(t, "GIT", rows[0].FileType)
	assert.Equal(t, "North", rows[0].Label)
}
