package chat

import (
	"strings"
	"text/template"

	"github.com/bookmarkai/bookmark-server/internal/llm"
)

const systemPrompt = `You are a helpful, creative, clever, and very friendly assistant. The user will be giving you a PROMPT, and CONTEXT will be provided from a source. You may use information from the provided context to respond to the prompt. Always assume that the prompt is referring to the provided context. You can ignore the context only if it is not relevant to the prompt.

Use markdown format if beneficial.`

var userTemplate = template.Must(template.New("user").Parse(`PROMPT:
{{.Question}}
CONTEXT:
{{.Context}}
ASSISTANT RESPONSE:`))

// RenderPrompt fills the user template with the question and the formatted context.
func RenderPrompt(question, context string) (llm.Prompt, error) {
	var sb strings.Builder
	err := userTemplate.Execute(&sb, struct{ Question, Context string }{question, context})
	if err != nil {
		return llm.Prompt{}, err
	}
	return llm.Prompt{System: systemPrompt, User: sb.String()}, nil
}
