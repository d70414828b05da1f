// Package sessions persists per-client conversation history for the lifetime
// of a session and carries the session id in a signed cookie.
package sessions

import (
	"context"
	"time"

	"chatd/internal/chat"
)

// DefaultTTL is how long an untouched session is kept.
const DefaultTTL = 31 * 24 * time.Hour

// Store keeps one conversation per session id. Load returns an empty
// conversation, not an error, for unknown or expired ids.
type Store interface {
	Load(ctx context.Context, id string) (chat.Conversation, error)
	Save(ctx context.Context, id string, conv chat.Conversation) error
	Close() error
}

func cloneConv(c chat.Conversation) chat.Conversation {
	if len(c) == 0 {
		return nil
	}
	out := make(chat.Conversation, len(c))
	copy(out, c)
	return out
}
