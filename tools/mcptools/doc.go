// Package mcptools discovers the tools of MCP server and
// wraps them as tools.ITool handles for the agent.
package mcptools
