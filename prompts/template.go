// Package prompts holds the prompt templates used by the question-answering
// chain and the content tools.
package prompts

import "strings"

// PromptTemplate is a string template with `{{.name}}` placeholders.
type PromptTemplate struct {
	Template string
}

func NewPromptTemplate(template string) PromptTemplate {
	return PromptTemplate{Template: template}
}

// Format substitutes every `{{.key}}` placeholder with the matching value.
// Unknown placeholders are left in place.
func (p PromptTemplate) Format(vars map[string]string) string {
	prompt := p.Template
	for key, value := range vars {
		prompt = strings.ReplaceAll(prompt, "{{."+key+"}}", value)
	}
	return prompt
}
