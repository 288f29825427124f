// Package tools defines the Tool interface for LLM agents.
// Tools enable agents to interact with external systems in a structured way:
// each tool has a name, a description and a JSON schema of its input.
package tools
