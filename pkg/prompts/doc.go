// Package prompts provides text/template based prompts with sprig functions.
package prompts
