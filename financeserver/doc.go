// Package financeserver provides the FinanceServer MCP tool server.
//
// The server exposes two tools over MCP:
//
//	get_exchange_rate{currency: string} -> rate
//	get_fee_description{amount: number} -> description
//
// The server is stateless, all logging goes to stderr as stdout
// is the protocol channel.
package financeserver
