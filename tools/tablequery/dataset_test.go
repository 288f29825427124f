package tablequery_test

import (
	"testing"

	"github.com/effective-security/finrecon/tools/tablequery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ledgerColumns = []tablequery.Column{
	{Name: "id", Type: tablequery.Text},
	{Name: "amount", Type: tablequery.Real},
	{Name: "qty", Type: tablequery.Integer},
}

func TestNewDataset(t *testing.T) {
	t.Parallel()

	ds, err := tablequery.NewDataset("ledger", ledgerColumns, [][]any{
		{"A1", 150, 1},
		{"A2", 3090.5, int64(2)},
	})
	require.NoError(t, err)
	assert.Equal(t, "ledger", ds.Name())
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, []string{"id", "amount", "qty"}, ds.ColumnNames())
	assert.Equal(t, [][]any{
		{"A1", 150.0, int64(1)},
		{"A2", 3090.5, int64(2)},
	}, ds.Rows())

	// accessors return copies
	rows := ds.Rows()
	rows[0][0] = "changed"
	cols := ds.Columns()
	cols[0].Name = "changed"
	assert.Equal(t, "A1", ds.Rows()[0][0])
	assert.Equal(t, "id", ds.Columns()[0].Name)

	tcases := []struct {
		name    string
		table   string
		columns []tablequery.Column
		rows    [][]any
		err     string
	}{
		{"bad name", "drop table", ledgerColumns, nil, `invalid dataset name: "drop table"`},
		{"no columns", "t", nil, nil, "dataset t: no columns"},
		{"dup column", "t", []tablequery.Column{{Name: "a", Type: tablequery.Text}, {Name: "a", Type: tablequery.Text}}, nil, "dataset t: duplicate column: a"},
		{"bad type", "t", []tablequery.Column{{Name: "a", Type: "BLOB"}}, nil, `dataset t: unsupported type of column a: "BLOB"`},
		{"arity", "t", ledgerColumns, [][]any{{"A1", 1.0}}, "dataset t: row 0 has 2 values, expected 3"},
		{"text type", "t", ledgerColumns, [][]any{{1, 1.0, 1}}, "dataset t: row 0, column id: value 1 of type int is not TEXT"},
		{"real type", "t", ledgerColumns, [][]any{{"A1", "1.0", 1}}, "dataset t: row 0, column amount: value 1.0 of type string is not REAL"},
		{"integer type", "t", ledgerColumns, [][]any{{"A1", 1.0, 1.5}}, "dataset t: row 0, column qty: value 1.5 of type float64 is not INTEGER"},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tablequery.NewDataset(tc.table, tc.columns, tc.rows)
			assert.EqualError(t, err, tc.err)
		})
	}

	assert.Panics(t, func() {
		tablequery.MustDataset("", nil, nil)
	})
}
