package krrs

// Subject is one of the fixed subject labels a question can classify into.
type Subject string

const (
	SubjectScience    Subject = "science"
	SubjectHistory    Subject = "history"
	SubjectLiterature Subject = "literature"
	SubjectGeneral    Subject = "general"
)

// Subjects lists the full classification enumeration.
var Subjects = []Subject{SubjectScience, SubjectHistory, SubjectLiterature, SubjectGeneral}

// Valid reports whether s is a member of the enumeration.
func (s Subject) Valid() bool {
	switch s {
	case SubjectScience, SubjectHistory, SubjectLiterature, SubjectGeneral:
		return true
	}
	return false
}

// Decision is the ternary outcome of a critique pass.
type Decision string

const (
	DecisionRespond      Decision = "respond"
	DecisionRetry        Decision = "retry"
	DecisionImproveQuery Decision = "improve_query"
)

// Valid reports whether d is a member of the enumeration.
func (d Decision) Valid() bool {
	switch d {
	case DecisionRespond, DecisionRetry, DecisionImproveQuery:
		return true
	}
	return false
}

// MaxRetrievedDocs caps the working document set; the oldest documents are
// discarded first.
const MaxRetrievedDocs = 5

// State is the working state of one invocation. It is created empty when an
// invocation starts, threaded by reference through every state-machine step,
// and discarded at the terminal respond step. Nothing persists across
// invocations.
type State struct {
	// Messages is the conversation history, append-only within one
	// invocation.
	Messages []Message

	// RetrievedDocs accumulates documents across tool calls, capped at
	// MaxRetrievedDocs most-recent entries.
	RetrievedDocs []Document

	// Classification is set exactly once, by the classifier, and read by
	// the router and the post-tool return routing.
	Classification Subject

	// AgentResponse is the latest specialist answer text, overwritten on
	// every specialist pass.
	AgentResponse string

	// CritiqueDecision is the outcome of the latest critique pass.
	CritiqueDecision Decision

	// CritiqueFeedback is the rationale from the latest critique pass. It
	// carries over until the next pass overwrites it; it is never cleared
	// mid-invocation, so a retried specialist always sees the most recent
	// feedback.
	CritiqueFeedback string
}

// NewState creates an empty invocation state.
func NewState() *State {
	return &State{}
}

// Append adds messages to the conversation history.
func (s *State) Append(msgs ...Message) {
	s.Messages = append(s.Messages, msgs...)
}

// AddDocs folds new documents into the working set and trims it to the
// MaxRetrievedDocs most recent entries.
func (s *State) AddDocs(docs ...Document) {
	s.RetrievedDocs = append(s.RetrievedDocs, docs...)
	if n := len(s.RetrievedDocs); n > MaxRetrievedDocs {
		s.RetrievedDocs = s.RetrievedDocs[n-MaxRetrievedDocs:]
	}
}

// Question returns the original user question for this invocation.
func (s *State) Question() string {
	return firstUserText(s.Messages)
}

// LastMessage returns the most recent message, or nil when there is none.
func (s *State) LastMessage() *Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return &s.Messages[len(s.Messages)-1]
}
