// Package model provides LLM adapters for the ai_response node.
package model

import "context"

// ChatModel is the interface the ai_response node generates text
// through.
//
// Implementations wrap a provider SDK (Anthropic, OpenAI, Google) and:
//   - Handle provider-specific authentication
//   - Convert the common Message format to the provider's format
//   - Respect context cancellation and timeouts
//
// Example:
//
//	m := openai.NewChatModel(apiKey, "gpt-4o-mini")
//	out, err := m.Chat(ctx, []model.Message{
//	    {Role: model.RoleSystem, Content: "You are a support agent."},
//	    {Role: model.RoleUser, Content: "Where is my order?"},
//	})
type ChatModel interface {
	// Chat sends the conversation to the provider and returns the
	// generated response.
	Chat(ctx context.Context, messages []Message) (ChatOut, error)
}

// Message is a single message in an LLM conversation, in the common
// chat format shared by the major providers.
type Message struct {
	// Role identifies the sender; use the Role* constants.
	Role string

	// Content is the message text.
	Content string
}

// Standard role constants.
const (
	// RoleSystem sets context or instructions; appears first.
	RoleSystem = "system"

	// RoleUser is input from the end user.
	RoleUser = "user"

	// RoleAssistant is a prior model response.
	RoleAssistant = "assistant"
)

// ChatOut is the output of a chat completion.
type ChatOut struct {
	// Text is the generated response.
	Text string

	// TokensIn and TokensOut report usage when the provider supplies
	// it, for cost accounting. Zero when unavailable.
	TokensIn  int
	TokensOut int
}
