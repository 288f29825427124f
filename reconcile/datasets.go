package reconcile

import (
	"github.com/effective-security/finrecon/tools/tablequery"
)

// Names of the sample tables
const (
	InternalRecords = "internal_records"
	BankStatement   = "bank_statement"
)

// Table is a dataset with the description of its query tool
type Table struct {
	Dataset     *tablequery.Dataset
	Description string
}

// InternalRecordsDataset returns the transactions of the company's internal system
func InternalRecordsDataset() *tablequery.Dataset {
	return tablequery.MustDataset(InternalRecords,
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
		},
	)
}

// BankStatementDataset returns the statement exported from the bank
func BankStatementDataset() *tablequery.Dataset {
	return tablequery.MustDataset(BankStatement,
		[]tablequery.Column{
			{Name: "bank_ref", Type: tablequery.Text},
			{Name: "bank_date", Type: tablequery.Text},
			{Name: "bank_amount", Type: tablequery.Real},
			{Name: "bank_desc", Type: tablequery.Text},
		},
		[][]any{
			{"B_REF_01", "2023-10-01", 150.0, "SBUX #4829 SEATTLE"},
			{"B_REF_02", "2023-10-02", 200.0, "APPLE.COM/BILL"},
			// 3000 plus 3% international fee
			{"B_REF_03", "2023-10-04", 3090.0, "AIRLINE TICKETS"},
		},
	)
}

// SampleTables returns the tables to reconcile
func SampleTables() []Table {
	return []Table{
		{
			Dataset:     InternalRecordsDataset(),
			Description: "Query the transaction records of the company's internal system, with columns trans_id, date, amount, desc",
		},
		{
			Dataset:     BankStatementDataset(),
			Description: "Query the statement details exported from the bank, with columns bank_ref, bank_date, bank_amount, bank_desc",
		},
	}
}
