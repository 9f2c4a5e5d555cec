package krrs

import (
	"context"
	"fmt"

	"github.com/sapienskid/KRRS/llm"
)

// runSpecialist performs one specialist pass: it renders a fresh prompt from
// the invocation's current state (question, working documents, latest critique
// feedback), calls the oracle, appends exactly one assistant message, and
// overwrites the candidate answer. An empty answer is permitted; the terminal
// step substitutes the fallback.
func (o *Orchestrator) runSpecialist(ctx context.Context, st *State, profile SubjectProfile) (*llm.Response, error) {
	question := st.Question()

	docsBlock := ""
	if len(st.RetrievedDocs) == 0 {
		docsBlock = fmt.Sprintf(noDocsSentinel, question)
	} else {
		docsBlock = FormatDocs(st.RetrievedDocs, DefaultMaxTotalTokens)
	}

	feedback := st.CritiqueFeedback
	if feedback == "" {
		feedback = noFeedbackSentinel
	}

	prompt := fmt.Sprintf(specialistPrompt, profile.Persona, question, docsBlock, feedback)

	resp, err := o.oracle.Generate(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: prompt},
	}, o.tools.schemasFor(profile))
	if err != nil {
		return nil, fmt.Errorf("specialist: %w", err)
	}

	msg := Message{Role: RoleAssistant, Content: resp.Content}
	for _, tc := range resp.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Name,
			Arguments: tc.Arguments,
		})
	}
	st.Append(msg)
	st.AgentResponse = resp.Content

	return resp, nil
}
