// Package serve exposes the orchestrator over HTTP: ask and index endpoints,
// invocation history backed by SQLite, and an SSE stream of step events.
package serve

import "time"

// InvocationRecord is one persisted invocation.
type InvocationRecord struct {
	ID             string    `json:"id"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`
	Subject        string    `json:"subject"`
	CritiquePasses int       `json:"critique_passes"`
	ToolRounds     int       `json:"tool_rounds"`
	Documents      int       `json:"documents"`
	InputTokens    int       `json:"input_tokens"`
	OutputTokens   int       `json:"output_tokens"`
	CostUSD        float64   `json:"cost_usd"`
	DurationMs     int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// MessageRecord is one persisted conversation message.
type MessageRecord struct {
	InvocationID string    `json:"invocation_id"`
	Seq          int       `json:"seq"`
	Role         string    `json:"role"`
	Content      string    `json:"content"`
	ToolCallID   string    `json:"tool_call_id,omitempty"`
	ToolName     string    `json:"tool_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// IndexedDocRecord is one persisted indexing outcome.
type IndexedDocRecord struct {
	URL       string    `json:"url"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title,omitempty"`
	Chars     int       `json:"chars"`
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists invocations and indexing history.
type Store interface {
	Init() error
	Close() error

	InsertInvocation(rec InvocationRecord) error
	InsertMessages(msgs []MessageRecord) error
	InsertIndexedDoc(rec IndexedDocRecord) error

	ListInvocations(limit int) ([]InvocationRecord, error)
	GetInvocation(id string) (*InvocationRecord, []MessageRecord, error)
	Stats() (StoreStats, error)
}

// StoreStats summarizes persisted history.
type StoreStats struct {
	Invocations int     `json:"invocations"`
	Messages    int     `json:"messages"`
	IndexedDocs int     `json:"indexed_docs"`
	TotalCost   float64 `json:"total_cost_usd"`
}
