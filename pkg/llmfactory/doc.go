// Package llmfactory creates chat models from configuration,
// and selects the model for assistants and tools by name.
package llmfactory
