package prompts

// AnswerPrompt instructs the model to answer strictly from retrieved context.
// The instruction wording matters: the chain detects the "doesn't contain a
// clear answer" phrasing to decide whether a retry with a rephrased query is
// worth the extra call.
var AnswerPrompt = NewPromptTemplate(
	`Answer the following question based EXCLUSIVELY on the provided context.

Question: {{.query}}

Context:
{{.context}}

Instructions:
1. Provide a clear, concise answer to the question
2. Include relevant details from the context
3. For technical content, preserve mathematical notation
4. If unsure, say "The information provided doesn't contain a clear answer to this question"
5. Do not invent information not present in the context`)

// FormatAnswer renders the answer prompt for a query and its assembled context.
func FormatAnswer(query, context string) string {
	return AnswerPrompt.Format(map[string]string{
		"query":   query,
		"context": context,
	})
}
