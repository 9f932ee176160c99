package prompts

// ToolSystemMessage frames the model as a tool executor for the content
// extraction tools.
const ToolSystemMessage = "You are an expert assistant tasked with generating precise responses " +
	"based on provided context and instructions. Provide only the requested output as specified " +
	"in the instructions. Do not include commentary or evaluations."

// ToolPrompt wraps a content tool invocation: the tool being executed, the
// document context and the tool's own output instructions, followed by
// guidelines shared by every tool.
var ToolPrompt = NewPromptTemplate(
	`You are tasked with executing the following tool:
{{.name}}: {{.description}}

Context:
{{.context}}

Instructions:
{{.instructions}}

Additional Guidelines:
1. Base your response EXCLUSIVELY on the provided context. Do not include findings from unrelated topics or previous contexts.
2. Follow the exact structure and format specified in the instructions, using '- **Section Name**:' for headers and '- ' for bullet points.
3. Ensure the response is concise, formal, and academic in tone.
4. Do not invent information or include page references or citations.
5. Provide only the requested output without commentary or evaluation.
6. Ensure each section has at least one bullet point, using inferences only when explicit findings are absent.
7. Avoid duplicating sections or including irrelevant findings.`)

// FormatTool renders the tool prompt.
func FormatTool(name, description, context, instructions string) string {
	return ToolPrompt.Format(map[string]string{
		"name":         name,
		"description":  description,
		"context":      context,
		"instructions": instructions,
	})
}
