package krrs

import (
	"context"
	"fmt"

	"github.com/sapienskid/KRRS/llm"
)

// classifySchema is the forced-tool schema through which the oracle reports
// the subject label.
var classifySchema = llm.ToolSchema{
	Name:        "classify_subject",
	Description: "Report the subject domain of the user's question.",
	InputSchema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"subject": map[string]any{
				"type":        "string",
				"enum":        []string{"science", "history", "literature", "general"},
				"description": "The subject domain of the question.",
			},
		},
		"required": []string{"subject"},
	},
}

// classify asks the oracle for a subject label and validates it against the
// enumeration. A label outside the enumeration is a contract violation by the
// oracle and comes back as a ClassificationError; transport failures pass
// through unchanged.
func classify(ctx context.Context, oracle llm.LLM, question string) (Subject, error) {
	prompt := fmt.Sprintf(classificationPrompt, question)

	out, err := oracle.GenerateStructured(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: prompt},
	}, classifySchema)
	if err != nil {
		return "", fmt.Errorf("classification: %w", err)
	}

	label, _ := out["subject"].(string)
	subject := Subject(label)
	if !subject.Valid() {
		return "", &ClassificationError{Label: label}
	}
	return subject, nil
}
