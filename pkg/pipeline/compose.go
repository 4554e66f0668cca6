package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nstogner/answerpipe/pkg/domain"
	"github.com/nstogner/answerpipe/pkg/tools"
)

// ErrEmptyConversation is returned when a run is started without a user message.
var ErrEmptyConversation = errors.New("conversation has no messages")

// Turn is a conversation split into what the run needs.
type Turn struct {
	// System is the caller's first system message, empty if none.
	System string
	// History holds the prior non-system messages in order.
	History []domain.Message
	// Current is the message being answered.
	Current domain.Message
}

// SplitTurn pops the first system message, drops any other system messages,
// and separates the final message from the history before it.
func SplitTurn(messages []domain.Message) (Turn, error) {
	var t Turn
	var rest []domain.Message
	seenSystem := false
	for _, m := range messages {
		if m.Role == domain.RoleSystem {
			if !seenSystem {
				t.System = m.Content
				seenSystem = true
			}
			continue
		}
		rest = append(rest, m)
	}
	if len(rest) == 0 {
		return Turn{}, ErrEmptyConversation
	}
	t.History = rest[:len(rest)-1]
	t.Current = rest[len(rest)-1]
	return t, nil
}

// ConversationContext renders prior turns as "User:" and "Assistant:" blocks.
// Tool messages are not included.
func ConversationContext(history []domain.Message) string {
	var b strings.Builder
	b.WriteString("Previous conversation:\n\n")
	for _, m := range history {
		switch m.Role {
		case domain.RoleUser:
			fmt.Fprintf(&b, "User: %s\n\n", m.Content)
		case domain.RoleAssistant:
			fmt.Fprintf(&b, "Assistant: %s\n\n", m.Content)
		}
	}
	return b.String()
}

// hinter is implemented by tools that carry a short usage hint for the
// composed guidance.
type hinter interface {
	UsageHint() string
}

// Guidance describes when to prefer each tool.
func Guidance(ts []tools.Tool) string {
	if len(ts) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You have access to %s search tools:\n", countWord(len(ts)))
	for _, t := range ts {
		hint := t.Description()
		if h, ok := t.(hinter); ok {
			hint = h.UsageHint()
		}
		fmt.Fprintf(&b, "- %s: %s\n", t.Name(), hint)
	}
	b.WriteString("Choose the appropriate tool based on the question type. You can call tools multiple times if needed.")
	return b.String()
}

func countWord(n int) string {
	words := []string{"zero", "one", "two", "three", "four", "five", "six"}
	if n < len(words) {
		return words[n]
	}
	return fmt.Sprint(n)
}

// Compose builds the message sequence for the first model call. With prior
// history the result is exactly [context system message, current message];
// the raw history is not forwarded.
func Compose(t Turn, guidance string) []domain.Message {
	if len(t.History) == 0 {
		if t.System == "" {
			return []domain.Message{t.Current}
		}
		return []domain.Message{{Role: domain.RoleSystem, Content: t.System}, t.Current}
	}

	var b strings.Builder
	if t.System != "" {
		b.WriteString(t.System)
		b.WriteString("\n\n")
	}
	b.WriteString(ConversationContext(t.History))
	b.WriteString("\n\n")
	b.WriteString(guidance)

	return []domain.Message{
		{Role: domain.RoleSystem, Content: b.String()},
		t.Current,
	}
}
