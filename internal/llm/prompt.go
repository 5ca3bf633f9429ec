package llm

import (
	"fmt"
	"strings"
)

// SystemPrompt is prepended to every upstream request.
const SystemPrompt = `You are a helpful, knowledgeable assistant.
Think carefully before answering and explain your reasoning when it helps the user.
Answer in the language the user writes in. Use Markdown for structure, code blocks for code,
and keep answers focused on the question asked.`

// EmbedReasoning folds an assistant turn's reasoning back into its content so
// that multi-turn context keeps it.
func EmbedReasoning(reasoning, content string) string {
	if strings.TrimSpace(reasoning) == "" {
		return content
	}
	return fmt.Sprintf("<reasoning>%s</reasoning>\n\n%s", reasoning, content)
}

// lastTurns keeps at most n of the most recent turns.
func lastTurns(turns []Turn, n int) []Turn {
	if len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}
