// Package tablequery provides tools to query tabular datasets
// with natural language questions.
//
// A Dataset is loaded into a private in-memory SQLite database,
// the model translates the question into a single SELECT query,
// and optionally synthesizes the answer from the query result.
package tablequery
