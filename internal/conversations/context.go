package conversations

import (
	"fmt"
	"strings"
)

const historyLimit = 10

// BuildContext renders conversation history as a context block for the
// retrieval gateway. Only the most recent messages are included, oldest
// first, each on its own line prefixed by the speaker.
func BuildContext(msgs []Message) string {
	if len(msgs) > historyLimit {
		msgs = msgs[len(msgs)-historyLimit:]
	}
	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		speaker := "Human"
		if msg.Role == RoleAssistant {
			speaker = "Assistant"
		}
		lines = append(lines, speaker+": "+msg.Content)
	}
	return strings.Join(lines, "\n")
}

// ComposeQuestion folds the context block into the outgoing question. An
// empty block leaves the question untouched.
func ComposeQuestion(question, block string) string {
	if block == "" {
		return question
	}
	return fmt.Sprintf("Given our previous conversation:\n%s\n\nNew question: %s", block, question)
}
