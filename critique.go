package krrs

import (
	"context"
	"fmt"

	"github.com/sapienskid/KRRS/llm"
)

// critiqueSchema is the forced-tool schema for the quality evaluation.
var critiqueSchema = llm.ToolSchema{
	Name:        "evaluate_response",
	Description: "Report whether the response adequately answers the question.",
	InputSchema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"decision": map[string]any{
				"type":        "string",
				"enum":        []string{"respond", "retry", "improve_query"},
				"description": "Whether to deliver, retry with the same documents, or retry with better retrieval.",
			},
			"feedback": map[string]any{
				"type":        "string",
				"description": "Specific feedback for the retry, when the decision is not respond.",
			},
		},
		"required": []string{"decision"},
	},
}

// critique evaluates the candidate response against the question and the
// working documents. A decision outside the enumeration is rejected at this
// boundary as a CritiqueError.
func critique(ctx context.Context, oracle llm.LLM, question, response string, docs []Document) (Decision, string, error) {
	prompt := fmt.Sprintf(critiquePrompt, question, response, FormatDocs(docs, DefaultMaxTotalTokens))

	out, err := oracle.GenerateStructured(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: prompt},
	}, critiqueSchema)
	if err != nil {
		return "", "", fmt.Errorf("critique: %w", err)
	}

	raw, _ := out["decision"].(string)
	decision := Decision(raw)
	if !decision.Valid() {
		return "", "", &CritiqueError{Decision: raw}
	}

	feedback, _ := out["feedback"].(string)
	return decision, feedback, nil
}
