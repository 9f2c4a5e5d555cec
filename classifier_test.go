package krrs

import (
	"context"
	"errors"
	"testing"
)

func TestClassifyValidLabels(t *testing.T) {
	for _, want := range Subjects {
		oracle := &fakeOracle{structured: []map[string]any{{"subject": string(want)}}}
		got, err := classify(context.Background(), oracle, "some question")
		if err != nil {
			t.Fatalf("classify(%s): %v", want, err)
		}
		if got != want {
			t.Errorf("classify = %s, want %s", got, want)
		}
	}
}

func TestClassifyRejectsLabelOutsideEnumeration(t *testing.T) {
	oracle := &fakeOracle{structured: []map[string]any{{"subject": "astronomy"}}}
	_, err := classify(context.Background(), oracle, "q")

	var cerr *ClassificationError
	if !errors.As(err, &cerr) {
		t.Fatalf("want ClassificationError, got %v", err)
	}
	if cerr.Label != "astronomy" {
		t.Errorf("error label = %q", cerr.Label)
	}
}

func TestClassifyPropagatesOracleFailure(t *testing.T) {
	oracle := &fakeOracle{} // empty structured queue fails
	if _, err := classify(context.Background(), oracle, "q"); err == nil {
		t.Fatalf("want error from failing oracle")
	}
}
