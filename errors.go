package krrs

import "errors"

// Standard errors.
var (
	// ErrMissingUserID is returned when the configuration lacks a tenant
	// id. Retrieval filters on it for data isolation, so it is fatal
	// before any state-machine step runs.
	ErrMissingUserID = errors.New("user id is required")

	// ErrUnsupportedProvider is returned for an unrecognized retriever
	// provider in the configuration.
	ErrUnsupportedProvider = errors.New("unsupported retriever provider")

	// ErrNoLLM is returned when an orchestrator is constructed without a
	// language-model backend.
	ErrNoLLM = errors.New("no LLM backend configured")

	// ErrNoRetriever is returned when an orchestrator is constructed
	// without a retriever.
	ErrNoRetriever = errors.New("no retriever configured")

	// ErrEmptyQuestion is returned when Ask is called with a blank
	// question.
	ErrEmptyQuestion = errors.New("question is empty")

	// ErrNoValidDocuments is returned by the index pipeline when content
	// could not be extracted from any of the given URLs.
	ErrNoValidDocuments = errors.New("no valid documents extracted")
)

// ClassificationError reports a label outside the subject enumeration
// returned by the oracle. This is a contract violation by the collaborator,
// rejected at the boundary rather than handled inside the state machine.
type ClassificationError struct {
	Label string
}

func (e *ClassificationError) Error() string {
	return "classifier returned label outside enumeration: " + e.Label
}

// CritiqueError reports a malformed structured critique output.
type CritiqueError struct {
	Decision string
}

func (e *CritiqueError) Error() string {
	return "critique returned decision outside enumeration: " + e.Decision
}
