package prompts

// PersonaData is the input of the Persona template
type PersonaData struct {
	// Tolerance is the fee tolerance in percent
	Tolerance float64
}

// Persona is the system prompt of the reconciliation agent
var Persona = Must(New("persona", `You are a financial reconciliation assistant.
Your task is to compare the internal transaction records with the bank statement.
1. First query the internal records and the bank statement separately, and find the items that may match.
2. If the amounts are not exactly equal (for example the difference is within {{ .Tolerance }}%), you must use the tools (such as get_fee_description and get_exchange_rate) to analyze whether a fee or an exchange rate explains the difference before calling it a discrepancy.
3. If the dates differ, report the date discrepancy of the pair, for example a bank date one day after the transaction date.
4. If the merchant names differ, use common sense to decide whether they refer to the same entity (for example SBUX is Starbucks).
5. Give a clear and professional reconciliation report that covers every compared pair.
`))

// Column describes a table column in the SQL prompt
type Column struct {
	Name string
	Type string
}

// SQLQueryData is the input of the SQL query prompts
type SQLQueryData struct {
	Table   string
	Columns []Column
	Preview string
	// PreviewLimit is the number of rows in Preview
	PreviewLimit int
	Question     string
}

// SQLQuerySystem instructs the model to translate a question into SQL
var SQLQuerySystem = Must(New("sql_query_system", `You are working with a SQLite table named {{ .Table | quote }}.
The table has the following columns:
{{- range .Columns }}
- {{ .Name | quote }} {{ .Type }}
{{- end }}

This is the result of "SELECT * FROM {{ .Table | quote }} LIMIT {{ .PreviewLimit }}":
{{ .Preview | trim }}

Convert the question into a single SQLite SELECT query over this table.
Return only the query, without explanations and without markdown.
`))

// SQLQueryHuman is the question part of the SQL query prompt
var SQLQueryHuman = Must(New("sql_query_human", `Question: {{ .Question | trim }}`))

// SynthesisData is the input of the Synthesis prompt
type SynthesisData struct {
	Question string
	SQL      string
	Result   string
}

// Synthesis asks the model to answer the question from the query result
var Synthesis = Must(New("synthesis", `Given an input question, synthesize a response from the query results.
Query: {{ .Question | trim }}

SQL: {{ .SQL | trim }}

Result:
{{ .Result | trim | default "(no rows)" }}

Response: `))
