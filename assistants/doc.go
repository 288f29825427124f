// Package assistants provides the tool-calling agent loop: the assistant sends
// the conversation with the tool definitions to the LLM, executes the requested
// tool calls and feeds the results back until the model answers with text.
package assistants
