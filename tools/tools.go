// Package tools implements the document analysis tools: whole-document
// operations that feed a document's full context to the model under a fixed
// set of output instructions.
package tools

import (
	"errors"
	"fmt"
)

// Tool names accepted by Run.
const (
	Summarize   = "summarize"
	Abstract    = "abstract"
	KeyFindings = "key_findings"
	Challenges  = "challenges"
)

// ErrUnknownTool is returned when a tool name has no registered definition.
var ErrUnknownTool = errors.New("tools: unknown tool")

// Tool pairs a tool's description with the output instructions sent to the
// model verbatim.
type Tool struct {
	Name         string
	Description  string
	Instructions string
}

var registry = []Tool{
	{
		Name:        Summarize,
		Description: "Generate a comprehensive summary of the provided context, covering research objectives, methodology, key findings, conclusions, and limitations.",
		Instructions: `Provide a structured summary with the following sections:
1. **Research Objectives**: State the main goals and questions addressed.
2. **Methodology**: Describe the approach and techniques used.
3. **Key Findings**: Highlight the most significant results and insights.
4. **Conclusions**: Summarize the implications and contributions.
5. **Limitations**: Note any mentioned constraints or future work.
Use clear headings and concise paragraphs. Do not include page references or citations.
Example:
**Research Objectives**: The study aimed to improve machine translation using a novel architecture.
**Methodology**: A transformer model with self-attention layers was implemented and trained on multilingual datasets.
**Key Findings**: The model achieved a 15% improvement in BLEU scores compared to baselines.
**Conclusions**: The transformer offers significant advancements in translation quality.
**Limitations**: The approach is computationally intensive, limiting its use on low-resource devices.`,
	},
	{
		Name:        Abstract,
		Description: "Compose a 200-250 word academic abstract covering problem statement, methodology, results, and significance.",
		Instructions: `Write a 200-250 word academic abstract that includes:
1. **Problem Statement**: The research gap or issue addressed.
2. **Methodology**: The approach used to investigate.
3. **Results**: The key findings and outcomes.
4. **Significance**: The implications and contributions.
Use a formal academic tone and ensure the abstract is a standalone summary. Do not include citations or page references.`,
	},
	{
		Name:        KeyFindings,
		Description: "Extract and list significant qualitative insights and novel contributions from the context.",
		Instructions: `**Comprehensive Key Findings Extraction Guidelines**:

1. **Qualitative Insights**:
   - Identify important observations, trends, patterns, or conclusions
   - Include statements about effectiveness, efficiency, or impact
   - Extract insights about methodology, data, or theoretical contributions
   - Look for statements about implications for practice or policy

2. **Novel Contributions**:
   - Identify any new methods, models, approaches, or techniques
   - Highlight unique aspects of the research or innovative applications
   - Note any new frameworks, systems, or tools developed
   - Include any significant extensions of existing work

**Output Format Requirements**:
- Use clear bullet points under each category
- Never use "Not mentioned" - instead try to infer from context
- Be as comprehensive as possible without inventing information
- Maintain original meaning but paraphrase concisely
- Remove any citations or page references

Example Output:
- **Qualitative Insights**:
  - Feature importance analysis revealed unexpected patterns
  - Method demonstrated robustness across diverse datasets
- **Novel Contributions**:
  - Developed new interpretability framework for model decisions
  - Introduced hybrid architecture combining X and Y approaches`,
	},
	{
		Name:        Challenges,
		Description: "Identify and explain methodological limitations, data constraints, theoretical boundaries, practical challenges, and future work from the context.",
		Instructions: `List and explain the challenges and limitations, categorized as:
1. **Methodological Issues**: Limitations in the research approach.
2. **Data Constraints**: Issues with data collection or quality.
3. **Theoretical Boundaries**: Limitations of the theoretical framework.
4. **Practical Challenges**: Difficulties in implementation.
5. **Future Work**: Suggested directions for future research.
For each, provide a brief description, its impact, and any author-proposed solutions or your suggestions. Use bullet points under each category. Do not include page references.`,
	},
}

// All returns every registered tool.
func All() []Tool {
	out := make([]Tool, len(registry))
	copy(out, registry)
	return out
}

// Lookup finds a tool by name.
func Lookup(name string) (Tool, error) {
	for _, tool := range registry {
		if tool.Name == name {
			return tool, nil
		}
	}
	return Tool{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
}
