package tablequery_test

import (
	"context"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/finrecon/tools/tablequery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openLedger(t *testing.T) *tablequery.Engine {
	t.Helper()

	ds := tablequery.MustDataset("internal_records",
		[]tablequery.Column{
			{Name: "trans_id", Type: tablequery.Text},
			{Name: "date", Type: tablequery.Text},
			{Name: "amount", Type: tablequery.Real},
			{Name: "desc", Type: tablequery.Text},
		},
		[][]any{
			{"T101", "2023-10-01", 150.0, "Starbucks Coffee"},
			{"T102", "2023-10-02", 200.0, "Apple Store"},
			{"T103", "2023-10-03", 3000.0, "Business Flight"},
		})

	e, err := tablequery.Open(context.Background(), ds)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = e.Close()
	})
	return e
}

func TestEngineQuery(t *testing.T) {
	t.Parallel()
	e := openLedger(t)
	ctx := context.Background()

	res, err := e.Query(ctx, `SELECT trans_id, amount FROM internal_records WHERE amount > 1000;`)
	require.NoError(t, err)
	assert.Equal(t, []string{"trans_id", "amount"}, res.Columns)
	assert.Equal(t, [][]any{{"T103", 3000.0}}, res.Rows)
	assert.Equal(t, "trans_id | amount\n---------+-------\nT103     | 3000.0\n", res.String())

	res, err = e.Query(ctx, `with big as (select * from internal_records where amount >= 200) select count(*) as n from big`)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(2)}}, res.Rows)

	// desc is a keyword, the column must be quoted
	res, err = e.Query(ctx, `SELECT "desc" FROM internal_records ORDER BY trans_id`)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 3)
	assert.Equal(t, "Starbucks Coffee", res.Rows[0][0])

	res, err = e.Preview(ctx)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 3)
	assert.Contains(t, res.String(), "T101     | 2023-10-01 | 150.0  | Starbucks Coffee\n")

	res, err = e.Query(ctx, `SELECT * FROM internal_records WHERE amount < 0`)
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
	assert.Equal(t, "trans_id | date | amount | desc\n---------+------+--------+-----\n", res.String())

	_, err = e.Query(ctx, `SELECT * FROM missing_table`)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, tablequery.ErrNotReadOnly))
}

func TestEngineReadOnly(t *testing.T) {
	t.Parallel()
	e := openLedger(t)
	ctx := context.Background()

	for _, q := range []string{
		"",
		"DELETE FROM internal_records",
		"UPDATE internal_records SET amount = 0",
		"DROP TABLE internal_records",
		"SELECT 1; DELETE FROM internal_records",
		"PRAGMA query_only = OFF",
		"ATTACH DATABASE ':memory:' AS other",
	} {
		_, err := e.Query(ctx, q)
		require.Error(t, err, q)
		assert.True(t, errors.Is(err, tablequery.ErrNotReadOnly), q)
	}

	// passes the lexical check, rejected by the connection
	_, err := e.Query(ctx, "WITH x AS (SELECT 1) DELETE FROM internal_records")
	require.Error(t, err)
	assert.False(t, errors.Is(err, tablequery.ErrNotReadOnly))

	res, err := e.Query(ctx, "SELECT count(*) FROM internal_records")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(3)}}, res.Rows)
}

func TestEngineConcurrentQueries(t *testing.T) {
	t.Parallel()
	e := openLedger(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.Query(ctx, "SELECT trans_id FROM internal_records ORDER BY trans_id")
			if assert.NoError(t, err) {
				assert.Len(t, res.Rows, 3)
			}
		}()
	}
	wg.Wait()
}

func TestCheckReadOnly(t *testing.T) {
	t.Parallel()

	q, err := tablequery.CheckReadOnly("  select * from t ;\n")
	require.NoError(t, err)
	assert.Equal(t, "select * from t", q)

	_, err = tablequery.CheckReadOnly("INSERT INTO t VALUES (1)")
	assert.EqualError(t, err, "unexpected INSERT: only a single SELECT statement is allowed")
}

func TestFormatValue(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "NULL", tablequery.FormatValue(nil))
	assert.Equal(t, "150.0", tablequery.FormatValue(150.0))
	assert.Equal(t, "3090.5", tablequery.FormatValue(3090.5))
	assert.Equal(t, "42", tablequery.FormatValue(int64(42)))
	assert.Equal(t, "abc", tablequery.FormatValue("abc"))
	assert.Equal(t, "true", tablequery.FormatValue(true))
	assert.Equal(t, `"q"`, tablequery.QuoteIdent("q"))
	assert.Equal(t, `"a""b"`, tablequery.QuoteIdent(`a"b`))
}
