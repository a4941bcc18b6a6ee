package rag

import (
	"fmt"
	"strings"

	"github.com/eddyvy/enscli-ai-manager/internal/llm"
	"github.com/eddyvy/enscli-ai-manager/internal/retrieval"
)

// contextPrompt is the system prompt for a grounded chat turn: the retrieved
// passages are presented as a fenced markdown context block the model may
// draw on alongside the chat history.
const contextPrompt = `You are a chatbot, able to have normal interactions, as well as talk about the provided context.
Here are the relevant documents for the context:

` + "```markdown\n%s\n```" + `

Instruction: Use the previous chat history, or the context above, to interact and help the user.`

func buildContextPrompt(passages []retrieval.Passage) string {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	return fmt.Sprintf(contextPrompt, strings.Join(texts, "\n\n"))
}

// condensePrompt rewrites a follow-up message into a standalone query that
// carries the conversation's context, so retrieval sees one self-contained
// question.
const condensePrompt = `Given the following conversation between a user and an assistant, and a follow up message from the user, rewrite the message to be a standalone question that captures all relevant context from the conversation.

Chat history:
%s

Follow up message: %s

Standalone question:`

func buildCondensePrompt(history []llm.Message, message string) string {
	var b strings.Builder
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return fmt.Sprintf(condensePrompt, strings.TrimRight(b.String(), "\n"), message)
}
