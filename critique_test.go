package krrs

import (
	"context"
	"errors"
	"testing"
)

func TestCritiqueDecisions(t *testing.T) {
	tests := []struct {
		decision string
		feedback string
	}{
		{"respond", ""},
		{"retry", "cite your sources"},
		{"improve_query", "search for the treaty text"},
	}
	for _, tt := range tests {
		oracle := &fakeOracle{structured: []map[string]any{
			{"decision": tt.decision, "feedback": tt.feedback},
		}}
		decision, feedback, err := critique(context.Background(), oracle, "q", "answer", nil)
		if err != nil {
			t.Fatalf("critique(%s): %v", tt.decision, err)
		}
		if decision != Decision(tt.decision) {
			t.Errorf("decision = %s, want %s", decision, tt.decision)
		}
		if feedback != tt.feedback {
			t.Errorf("feedback = %q, want %q", feedback, tt.feedback)
		}
	}
}

func TestCritiqueRejectsDecisionOutsideEnumeration(t *testing.T) {
	oracle := &fakeOracle{structured: []map[string]any{{"decision": "redo"}}}
	_, _, err := critique(context.Background(), oracle, "q", "a", nil)

	var cerr *CritiqueError
	if !errors.As(err, &cerr) {
		t.Fatalf("want CritiqueError, got %v", err)
	}
	if cerr.Decision != "redo" {
		t.Errorf("error decision = %q", cerr.Decision)
	}
}
