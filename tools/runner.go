package tools

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/paperqa/paperqa/llms"
	"github.com/paperqa/paperqa/prompts"
	"github.com/paperqa/paperqa/schema"
)

const (
	defaultTemperature = 0.3
	defaultMaxTokens   = 1000

	// Key findings extraction works better with more headroom and a
	// slightly looser sampling temperature.
	keyFindingsTemperature = 0.5
	keyFindingsMaxTokens   = 1500
)

// Runner executes content tools against a language model.
type Runner struct {
	llm    llms.Model
	logger *slog.Logger
}

func NewRunner(llm llms.Model, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		llm:    llm,
		logger: logger.With("component", "tools"),
	}
}

// Run executes the named tool over the given document context and returns the
// cleaned model output. A model failure surfaces as an error string in the
// result, not as a Go error, so callers can return it to clients unchanged.
func (r *Runner) Run(ctx context.Context, name, docContext string) (string, error) {
	tool, err := Lookup(name)
	if err != nil {
		return "", err
	}

	r.logger.Info("executing tool", "tool", name)

	temperature := defaultTemperature
	maxTokens := defaultMaxTokens
	if name == KeyFindings {
		temperature = keyFindingsTemperature
		maxTokens = keyFindingsMaxTokens
	}

	messages := []schema.MessageContent{
		schema.NewSystemMessage(prompts.ToolSystemMessage),
		schema.NewHumanMessage(prompts.FormatTool(tool.Name, tool.Description, docContext, tool.Instructions)),
	}

	resp, err := r.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(maxTokens),
	)
	if err != nil {
		r.logger.Error("tool execution failed", "tool", name, "error", err)
		return fmt.Sprintf("Error generating response: %v", err), nil
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		r.logger.Error("empty response from model", "tool", name)
		return "Error: No response generated by the assistant", nil
	}

	response := resp.Choices[0].Content
	if name == KeyFindings {
		response = normalizeKeyFindings(response)
	}
	result := cleanToolOutput(response)

	if name == Abstract {
		if words := len(strings.Fields(result)); words < 200 || words > 250 {
			r.logger.Warn("abstract word count outside target range", "words", words)
		}
	}
	return result, nil
}

var (
	pageRefRE    = regexp.MustCompile(`\[Page \d+\]`)
	boldRE       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicRE     = regexp.MustCompile(`\*([^*]+)\*`)
	mdHeaderRE   = regexp.MustCompile(`(?m)^#+.*\n`)
	newlineRunRE = regexp.MustCompile(`\n{3,}`)
)

// cleanToolOutput strips page references, markdown emphasis and headers.
func cleanToolOutput(s string) string {
	s = pageRefRE.ReplaceAllString(s, "")
	s = boldRE.ReplaceAllString(s, "$1")
	s = italicRE.ReplaceAllString(s, "$1")
	s = mdHeaderRE.ReplaceAllString(s, "")
	s = newlineRunRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

var keyFindingsSections = []string{"Qualitative Insights", "Novel Contributions"}

var (
	kfHeaderToBulletRE = regexp.MustCompile(`#{1,}\s*([^\n]+)`)
	kfSectionRE        = regexp.MustCompile(`^-\s*\*\*([^*]+)\*\*:`)
	kfEmptyLinesRE     = regexp.MustCompile(`\n\s*\n+`)
)

// normalizeKeyFindings reshapes a key findings response into exactly the two
// expected sections, deduplicating bullets and substituting an inferred
// placeholder when the model produced nothing usable for a section.
func normalizeKeyFindings(response string) string {
	response = kfHeaderToBulletRE.ReplaceAllString(response, "- **$1**:")
	response = kfEmptyLinesRE.ReplaceAllString(response, "\n")
	response = pageRefRE.ReplaceAllString(response, "")

	findings := make(map[string][]string, len(keyFindingsSections))
	current := ""

	for _, raw := range strings.Split(response, "\n") {
		line := strings.TrimSpace(raw)
		if m := kfSectionRE.FindStringSubmatch(line); m != nil {
			section := strings.TrimSpace(m[1])
			for _, known := range keyFindingsSections {
				if section == known {
					current = known
					break
				}
			}
			continue
		}
		if current == "" || !strings.HasPrefix(line, "- ") {
			continue
		}
		finding := strings.TrimSpace(line[2:])
		switch strings.ToLower(finding) {
		case "", "none", "not mentioned":
			continue
		}
		findings[current] = append(findings[current], "- "+finding)
	}

	var out []string
	for _, section := range keyFindingsSections {
		out = append(out, fmt.Sprintf("- **%s**:", section))
		bullets := findings[section]
		if len(bullets) == 0 {
			if section == "Qualitative Insights" {
				out = append(out, "- Inferred insights suggest the research provides valuable observations or practical implications aligned with its objectives.")
			} else {
				out = append(out, "- Inferred contributions suggest the research introduces novel methods or applications relevant to its field.")
			}
			continue
		}
		seen := make(map[string]struct{}, len(bullets))
		for _, bullet := range bullets {
			if _, dup := seen[bullet]; dup {
				continue
			}
			seen[bullet] = struct{}{}
			out = append(out, bullet)
		}
	}
	return strings.Join(out, "\n")
}
