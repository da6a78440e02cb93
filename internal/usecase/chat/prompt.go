package chat

import (
	"fmt"
	"strings"

	domchat "github.com/kailas-cloud/pdfchat/internal/domain/chat"
	domchunk "github.com/kailas-cloud/pdfchat/internal/domain/chunk"
)

// NoInformationAnswer is returned when retrieval finds nothing to ground an answer on.
const NoInformationAnswer = "I couldn't find any relevant information about that in this document. " +
	"Is there something else you'd like to know?"

// contextSeparator joins chunk excerpts in the system prompt.
const contextSeparator = "\n\n---\n\n"

const systemPreamble = `You are a helpful assistant answering questions about a PDF document the user uploaded.
Use only the excerpts below to answer. If they do not contain the answer, say that you don't know instead of guessing.
Keep answers concise and cite page numbers when you rely on an excerpt.

Excerpts from the document, most relevant first:

`

// buildSystemPrompt lists the retrieved chunks in relevance order, each tagged with its page.
func buildSystemPrompt(chunks []domchunk.RetrievedChunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = excerptLabel(c) + "\n" + c.Content
	}
	return systemPreamble + strings.Join(parts, contextSeparator)
}

func excerptLabel(c domchunk.RetrievedChunk) string {
	if c.Metadata.PageNumber > 0 {
		return fmt.Sprintf("[Page %d]", c.Metadata.PageNumber)
	}
	return "[Page unknown]"
}

// buildMessages assembles system prompt, prior turns and the new question.
func buildMessages(chunks []domchunk.RetrievedChunk, q domchat.Question) []domchat.Message {
	history := q.ConversationHistory()
	msgs := make([]domchat.Message, 0, len(history)+2)
	msgs = append(msgs, domchat.Message{Role: domchat.RoleSystem, Content: buildSystemPrompt(chunks)})
	msgs = append(msgs, history...)
	return append(msgs, domchat.Message{Role: domchat.RoleUser, Content: q.Query})
}
