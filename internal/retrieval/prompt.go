package retrieval

import (
	"fmt"
	"strings"
)

// promptBodyLimit caps each source body inside the prompt.
const promptBodyLimit = 1200

// insufficientAnswer is the exact reply the model is told to give when the
// sources cannot answer the question.
const insufficientAnswer = "I do not know based on the provided documents."

// BuildPrompt renders the grounded prompt for one question. With no sources
// the model is instructed to give the fixed insufficient-information reply
// instead of answering from its own knowledge.
func BuildPrompt(question string, sources []AnswerSource) string {
	var b strings.Builder

	if len(sources) == 0 {
		b.WriteString("You are a document question answering assistant. ")
		b.WriteString("No sources matched this question, so reply exactly: \"")
		b.WriteString(insufficientAnswer)
		b.WriteString("\"\n\nQuestion: ")
		b.WriteString(question)
		return b.String()
	}

	b.WriteString("You are a document question answering assistant. ")
	b.WriteString("Answer using only the numbered sources below and cite them ")
	b.WriteString("by bracketed index, for example [1]. ")
	b.WriteString("If the sources do not contain enough information, reply: \"")
	b.WriteString(insufficientAnswer)
	b.WriteString("\"\n\nSources:\n")

	for i, src := range sources {
		title := strings.TrimSpace(src.DocumentTitle)
		if title == "" {
			title = src.DocumentID
		}
		fmt.Fprintf(&b, "[%d] %s", i+1, title)
		if src.Meta != nil && src.Meta.Page != nil {
			fmt.Fprintf(&b, " (page %d)", *src.Meta.Page)
		}
		b.WriteString("\n")
		b.WriteString(sourceBody(src))
		b.WriteString("\n\n")
	}

	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\nAnswer:")
	return b.String()
}

// sourceBody prefers the full chunk text over the stored snippet and caps
// the result so one long chunk cannot crowd out the rest of the prompt.
func sourceBody(src AnswerSource) string {
	body := src.Text
	if strings.TrimSpace(body) == "" && src.Meta != nil {
		body = src.Meta.TextSnippet
	}
	body = strings.TrimSpace(body)

	runes := []rune(body)
	if len(runes) > promptBodyLimit {
		return string(runes[:promptBodyLimit]) + "..."
	}
	return body
}
