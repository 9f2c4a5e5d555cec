package krrs

import (
	"fmt"
	"testing"
)

func TestSubjectValid(t *testing.T) {
	for _, s := range Subjects {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []Subject{"", "math", "SCIENCE"} {
		if s.Valid() {
			t.Errorf("%q should be invalid", s)
		}
	}
}

func TestDecisionValid(t *testing.T) {
	for _, d := range []Decision{DecisionRespond, DecisionRetry, DecisionImproveQuery} {
		if !d.Valid() {
			t.Errorf("%q should be valid", d)
		}
	}
	if Decision("redo").Valid() {
		t.Errorf("unknown decision should be invalid")
	}
}

func TestAddDocsCapKeepsMostRecent(t *testing.T) {
	st := NewState()
	for i := 0; i < 6; i++ {
		st.AddDocs(NewDocument(fmt.Sprintf("doc-%d", i), nil))
	}

	if len(st.RetrievedDocs) != MaxRetrievedDocs {
		t.Fatalf("got %d docs, want %d", len(st.RetrievedDocs), MaxRetrievedDocs)
	}
	// doc-0 is the oldest and must be gone; doc-1..doc-5 remain in order.
	for i, doc := range st.RetrievedDocs {
		want := fmt.Sprintf("doc-%d", i+1)
		if doc.Content != want {
			t.Errorf("docs[%d] = %q, want %q", i, doc.Content, want)
		}
	}
}

func TestQuestionFallsBackToFirstMessage(t *testing.T) {
	st := NewState()
	if st.Question() != "" {
		t.Errorf("empty state should have empty question")
	}

	st.Append(Message{Role: RoleAssistant, Content: "hello"})
	if got := st.Question(); got != "hello" {
		t.Errorf("fallback question = %q, want first message", got)
	}

	st.Append(Message{Role: RoleUser, Content: "what is entropy?"})
	if got := st.Question(); got != "what is entropy?" {
		t.Errorf("question = %q, want first user message", got)
	}
}

func TestDocumentTruncatedIsImmutable(t *testing.T) {
	orig := NewDocument("0123456789", map[string]any{MetaSource: "s"})
	cut := orig.Truncated(4, "...")

	if orig.Content != "0123456789" {
		t.Errorf("original document was modified")
	}
	if cut.Content != "0123..." {
		t.Errorf("truncated content = %q", cut.Content)
	}
	if cut.Source() != "s" {
		t.Errorf("metadata lost in truncation")
	}

	// Within the limit, the document passes through untouched.
	same := orig.Truncated(100, "...")
	if same.Content != orig.Content {
		t.Errorf("under-limit truncation changed content")
	}
}

func TestDocumentSourceAndTitle(t *testing.T) {
	d := NewDocument("c", nil)
	if d.Source() != "Unknown" {
		t.Errorf("missing source should read Unknown, got %q", d.Source())
	}
	if d.Title("fallback") != "fallback" {
		t.Errorf("missing title should use fallback")
	}

	d = d.WithMeta(MetaTitle, "T").WithMeta(MetaSource, "S")
	if d.Title("x") != "T" || d.Source() != "S" {
		t.Errorf("metadata accessors wrong: %q %q", d.Title("x"), d.Source())
	}
}
