// Package llms provides a provider-neutral chat model abstraction.
//
// Messages are built from typed parts: text, tool calls requested by the model,
// and tool call responses produced by the caller. Provider packages
// (openai, anthropic) translate them to the wire format of the backend.
package llms
