// Package chat turns a conversation into a stream of generation events.
package chat

// Role identifies the author of a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// DefaultMaxHistory is the number of turns kept in a conversation.
const DefaultMaxHistory = 10

// Turn is one message in a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is an ordered list of turns, oldest first.
type Conversation []Turn

// Append returns c with a new turn added at the end.
func (c Conversation) Append(role Role, content string) Conversation {
	return append(c, Turn{Role: role, Content: content})
}

// Trim returns the most recent max turns. A non-positive max keeps
// everything. The result never aliases the dropped prefix.
func (c Conversation) Trim(max int) Conversation {
	if max <= 0 || len(c) <= max {
		return c
	}
	out := make(Conversation, max)
	copy(out, c[len(c)-max:])
	return out
}
