package krrs

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sapienskid/KRRS/llm"
	"github.com/sapienskid/KRRS/retrieval"
)

func TestNewValidatesConfiguration(t *testing.T) {
	oracle := &fakeOracle{}
	retr := &fakeRetriever{}

	cfg := testConfig()
	cfg.UserID = ""
	if _, err := New(cfg, WithLLM(oracle), WithRetriever(retr)); !errors.Is(err, ErrMissingUserID) {
		t.Errorf("missing user id: got %v", err)
	}

	cfg = testConfig()
	cfg.UserID = "default_user"
	if _, err := New(cfg, WithLLM(oracle), WithRetriever(retr)); !errors.Is(err, ErrMissingUserID) {
		t.Errorf("placeholder user id: got %v", err)
	}

	cfg = testConfig()
	cfg.RetrieverProvider = "pinecone"
	if _, err := New(cfg, WithLLM(oracle), WithRetriever(retr)); !errors.Is(err, ErrUnsupportedProvider) {
		t.Errorf("unsupported provider: got %v", err)
	}

	if _, err := New(testConfig(), WithRetriever(retr)); !errors.Is(err, ErrNoLLM) {
		t.Errorf("no llm: got %v", err)
	}
	if _, err := New(testConfig(), WithLLM(oracle)); !errors.Is(err, ErrNoRetriever) {
		t.Errorf("no retriever: got %v", err)
	}
}

func TestAskEmptyQuestion(t *testing.T) {
	orc := newTestOrchestrator(t, testConfig(), &fakeOracle{}, &fakeRetriever{})
	if _, err := orc.Ask(context.Background(), "   "); !errors.Is(err, ErrEmptyQuestion) {
		t.Errorf("got %v, want ErrEmptyQuestion", err)
	}
}

// The full happy path: a history question triggers retrieval, the specialist
// answers from the retrieved document, and the critique approves.
func TestAskFullInvocation(t *testing.T) {
	oracle := &fakeOracle{
		structured: []map[string]any{
			{"subject": "history"},
			{"decision": "respond"},
		},
		generate: []*llm.Response{
			{
				StopReason: llm.StopReasonToolUse,
				ToolCalls: []llm.ToolCall{
					{ID: "c1", Name: ToolRetrieveDocuments, Arguments: map[string]any{"query": "causes of world war one"}},
				},
				InputTokens: 100, OutputTokens: 20, CostUSD: 0.001,
			},
			{
				Content:     "The assassination of Archduke Franz Ferdinand set off the July Crisis. [Source: kb]",
				InputTokens: 200, OutputTokens: 50, CostUSD: 0.002,
			},
		},
	}
	retr := &fakeRetriever{docs: []retrieval.Document{
		{Content: "The July Crisis followed the assassination in Sarajevo.", Metadata: map[string]any{"source": "kb", "title": "WWI"}},
	}}
	orc := newTestOrchestrator(t, testConfig(), oracle, retr)

	result, err := orc.Ask(context.Background(), "What caused World War I?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if result.Subject != SubjectHistory {
		t.Errorf("subject = %s", result.Subject)
	}
	if !strings.Contains(result.Answer, "Archduke") {
		t.Errorf("answer = %q", result.Answer)
	}
	if result.ToolRounds != 1 || result.CritiquePasses != 1 || result.Documents != 1 {
		t.Errorf("rounds=%d passes=%d docs=%d", result.ToolRounds, result.CritiquePasses, result.Documents)
	}
	if result.InputTokens != 300 || result.OutputTokens != 70 {
		t.Errorf("usage not aggregated: in=%d out=%d", result.InputTokens, result.OutputTokens)
	}

	// Conversation: user, assistant(tool call), tool result, assistant.
	roles := make([]Role, 0, len(result.Messages))
	for _, m := range result.Messages {
		roles = append(roles, m.Role)
	}
	want := []Role{RoleUser, RoleAssistant, RoleTool, RoleAssistant}
	if len(roles) != len(want) {
		t.Fatalf("conversation roles = %v", roles)
	}
	for i := range want {
		if roles[i] != want[i] {
			t.Errorf("roles[%d] = %s, want %s", i, roles[i], want[i])
		}
	}

	// After tooling, control returned to the specialist selected by the
	// original classification: both prompts carry the historian persona.
	for i, prompt := range oracle.prompts {
		if !strings.Contains(prompt, "expert historian") {
			t.Errorf("prompt %d lost the history persona", i)
		}
	}
	// The second specialist pass saw the retrieved document.
	if !strings.Contains(oracle.prompts[1], "Sarajevo") {
		t.Errorf("second pass missing retrieved document")
	}
}

func TestAskRespondIsTerminal(t *testing.T) {
	oracle := &fakeOracle{
		structured: []map[string]any{
			{"subject": "general"},
			{"decision": "respond"},
		},
		generate: []*llm.Response{{Content: "done"}},
	}
	orc := newTestOrchestrator(t, testConfig(), oracle, &fakeRetriever{})

	result, err := orc.Ask(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if result.Answer != "done" {
		t.Errorf("answer = %q", result.Answer)
	}
	// Exactly one specialist pass; respond did not loop back.
	if len(oracle.prompts) != 1 {
		t.Errorf("specialist ran %d times after respond", len(oracle.prompts))
	}
}

func TestAskRetryCarriesFeedback(t *testing.T) {
	oracle := &fakeOracle{
		structured: []map[string]any{
			{"subject": "science"},
			{"decision": "retry", "feedback": "explain the second law"},
			{"decision": "respond"},
		},
		generate: []*llm.Response{
			{Content: "entropy increases"},
			{Content: "entropy increases because of the second law"},
		},
	}
	orc := newTestOrchestrator(t, testConfig(), oracle, &fakeRetriever{})

	result, err := orc.Ask(context.Background(), "What is entropy?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if result.CritiquePasses != 2 {
		t.Errorf("critique passes = %d, want 2", result.CritiquePasses)
	}
	if !strings.Contains(result.Answer, "second law") {
		t.Errorf("answer = %q", result.Answer)
	}
	if !strings.Contains(oracle.prompts[1], "explain the second law") {
		t.Errorf("retry pass missing critique feedback")
	}
}

func TestAskCritiquePassGuardForcesRespond(t *testing.T) {
	oracle := &fakeOracle{
		structured: []map[string]any{
			{"subject": "general"},
			{"decision": "retry", "feedback": "again"},
			// Single trailing entry repeats: the critic never approves.
		},
		generate: []*llm.Response{{Content: "best effort"}},
	}
	orc := newTestOrchestrator(t, testConfig(), oracle, &fakeRetriever{})

	result, err := orc.Ask(context.Background(), "q")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if result.CritiquePasses != DefaultMaxCritiquePasses {
		t.Errorf("critique passes = %d, want %d", result.CritiquePasses, DefaultMaxCritiquePasses)
	}
	if result.Answer != "best effort" {
		t.Errorf("answer = %q", result.Answer)
	}
}

func TestAskToolRoundGuardForcesCritique(t *testing.T) {
	oracle := &fakeOracle{
		structured: []map[string]any{
			{"subject": "science"},
			{"decision": "respond"},
		},
		// Single entry repeats: the specialist always wants another
		// retrieval and never produces text.
		generate: []*llm.Response{{
			StopReason: llm.StopReasonToolUse,
			ToolCalls: []llm.ToolCall{
				{ID: "c", Name: ToolRetrieveDocuments, Arguments: map[string]any{"query": "more"}},
			},
		}},
	}
	retr := &fakeRetriever{docs: []retrieval.Document{{Content: "doc"}}}
	orc := newTestOrchestrator(t, testConfig(), oracle, retr)

	result, err := orc.Ask(context.Background(), "q")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if result.ToolRounds != DefaultMaxToolRounds {
		t.Errorf("tool rounds = %d, want %d", result.ToolRounds, DefaultMaxToolRounds)
	}
	if result.Answer != fallbackAnswer {
		t.Errorf("answer = %q, want fallback", result.Answer)
	}
}

func TestAskInvalidClassificationFallsBackToGeneral(t *testing.T) {
	oracle := &fakeOracle{
		structured: []map[string]any{
			{"subject": "astronomy"},
			{"decision": "respond"},
		},
		generate: []*llm.Response{{Content: "ans"}},
	}
	orc := newTestOrchestrator(t, testConfig(), oracle, &fakeRetriever{})

	result, err := orc.Ask(context.Background(), "q")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if result.Subject != SubjectGeneral {
		t.Errorf("subject = %s, want general", result.Subject)
	}
	if !strings.Contains(oracle.prompts[0], "interdisciplinary") {
		t.Errorf("specialist did not use the general persona")
	}
}

func TestAskEmitsEvents(t *testing.T) {
	oracle := &fakeOracle{
		structured: []map[string]any{
			{"subject": "general"},
			{"decision": "respond"},
		},
		generate: []*llm.Response{{Content: "ans"}},
	}

	var events []Event
	orc := newTestOrchestrator(t, testConfig(), oracle, &fakeRetriever{},
		WithEventFunc(func(e Event) { events = append(events, e) }))

	result, err := orc.Ask(context.Background(), "q")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	var phases []string
	completed := false
	for _, e := range events {
		if e.InvocationID != result.ID {
			t.Errorf("event carries wrong invocation id")
		}
		switch e.Type {
		case EventPhase:
			phases = append(phases, e.Phase)
		case EventCompleted:
			completed = true
		}
	}
	want := []string{"classifying", "dispatch", "specialist_active", "critiquing", "responding"}
	if len(phases) != len(want) {
		t.Fatalf("phases = %v, want %v", phases, want)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Errorf("phases[%d] = %s, want %s", i, phases[i], want[i])
		}
	}
	if !completed {
		t.Errorf("no completed event")
	}
}
