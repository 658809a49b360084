package adapter

import "context"

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// GenerativeBackend turns a transcript into reply text. Implementations never
// fail: transport and backend errors collapse into a fixed fallback reply.
type GenerativeBackend interface {
	Complete(ctx context.Context, transcript []Message) string
}
