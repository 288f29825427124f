// Package reconcile runs the reconciliation agent: it launches the finance tool
// server, builds the table query tools over the sample data, and asks the agent
// to reconcile the internal records against the bank statement.
package reconcile
