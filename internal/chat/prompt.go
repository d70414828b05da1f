package chat

import "strings"

const (
	startOfTurn = "<start_of_turn>"
	endOfTurn   = "<end_of_turn>"
)

// StopSequence ends a model turn in the prompt format produced by FormatPrompt.
const StopSequence = endOfTurn

// FormatPrompt renders conv in the Gemma chat template. The last turn is
// always rendered as the user's, followed by an open model turn. It returns
// an empty string for an empty conversation.
func FormatPrompt(system string, conv Conversation) string {
	if len(conv) == 0 {
		return ""
	}
	var b strings.Builder
	writeTurn(&b, "system", system)
	for _, t := range conv[:len(conv)-1] {
		role := string(RoleModel)
		if t.Role == RoleUser {
			role = string(RoleUser)
		}
		writeTurn(&b, role, t.Content)
	}
	writeTurn(&b, string(RoleUser), conv[len(conv)-1].Content)
	b.WriteString(startOfTurn)
	b.WriteString(string(RoleModel))
	b.WriteByte('\n')
	return b.String()
}

func writeTurn(b *strings.Builder, role, content string) {
	b.WriteString(startOfTurn)
	b.WriteString(role)
	b.WriteByte('\n')
	b.WriteString(content)
	b.WriteString(endOfTurn)
	b.WriteString("\n\n")
}
