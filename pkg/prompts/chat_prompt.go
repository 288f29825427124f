package prompts

import (
	"strings"

	"github.com/effective-security/finrecon/pkg/llms"
	"github.com/effective-security/finrecon/pkg/llmutils"
)

// ChatPromptValue is a prompt value that is a list of chat messages.
type ChatPromptValue []llms.Message

// String returns the chat message slice as a buffer string.
func (v ChatPromptValue) String() string {
	var buf strings.Builder
	llmutils.PrintMessageContents(&buf, v)
	return buf.String()
}

// Messages returns the ChatMessage slice.
func (v ChatPromptValue) Messages() []llms.Message {
	return v
}

// FormatChat renders the system and the human templates with the same data
// into a two message prompt.
func FormatChat(system, human *Template, data any) (ChatPromptValue, error) {
	sys, err := system.Format(data)
	if err != nil {
		return nil, err
	}
	req, err := human.Format(data)
	if err != nil {
		return nil, err
	}
	return ChatPromptValue{
		llms.MessageFromTextParts(llms.RoleSystem, sys),
		llms.MessageFromTextParts(llms.RoleHuman, req),
	}, nil
}
