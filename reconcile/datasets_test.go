package reconcile_test

import (
	"testing"

	"github.com/effective-security/finrecon/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleTables(t *testing.T) {
	t.Parallel()

	tables := reconcile.SampleTables()
	require.Len(t, tables, 2)

	internal := tables[0].Dataset
	assert.Equal(t, reconcile.InternalRecords, internal.Name())
	assert.Equal(t, []string{"trans_id", "date", "amount", "desc"}, internal.ColumnNames())
	assert.Equal(t, 3, internal.Len())
	assert.Equal(t, []any{"T103", "2023-10-03", 3000.0, "Business Flight"}, internal.Rows()[2])

	bank := tables[1].Dataset
	assert.Equal(t, reconcile.BankStatement, bank.Name())
	assert.Equal(t, []string{"bank_ref", "bank_date", "bank_amount", "bank_desc"}, bank.ColumnNames())
	assert.Equal(t, 3, bank.Len())
	assert.Equal(t, []any{"B_REF_03", "2023-10-04", 3090.0, "AIRLINE TICKETS"}, bank.Rows()[2])

	for _, table := range tables {
		for _, col := range table.Dataset.ColumnNames() {
			assert.Contains(t, table.Description, col, "%s description", table.Dataset.Name())
		}
	}
}
