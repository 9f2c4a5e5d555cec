package llm

import "context"

// LLM is the interface for language model backends. The core treats a call
// as synchronous from its perspective: it suspends until the oracle resolves.
type LLM interface {
	// Generate sends a prompt and returns the complete response, which may
	// carry tool calls instead of (or alongside) text.
	Generate(ctx context.Context, messages []Message, tools []ToolSchema) (*Response, error)

	// GenerateStructured forces the model to answer through the given
	// schema and returns the structured arguments. Used where a fixed
	// output contract is required (classification, critique decisions).
	GenerateStructured(ctx context.Context, messages []Message, schema ToolSchema) (map[string]any, error)
}

// Message represents a conversation message sent to the oracle.
type Message struct {
	Role    Role
	Content string
}

// Role identifies the message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Response is the result of an oracle call.
type Response struct {
	// Content is the text response.
	Content string

	// ToolCalls are any tool calls the model wants to make.
	ToolCalls []ToolCall

	// Token counts.
	InputTokens  int
	OutputTokens int

	// Cache token counts (Anthropic prompt caching).
	CacheCreationInputTokens int
	CacheReadInputTokens     int

	// Cost in USD.
	CostUSD float64

	// Latency in milliseconds.
	LatencyMs int64

	// StopReason indicates why generation stopped.
	StopReason StopReason
}

// ToolCall represents a tool call from the model.
type ToolCall struct {
	// ID is the unique identifier for this tool call.
	ID string

	// Name is the tool being called.
	Name string

	// Arguments are the parameters passed to the tool.
	Arguments map[string]any
}

// StopReason indicates why the model stopped generating.
type StopReason string

const (
	StopReasonEnd      StopReason = "end_turn"
	StopReasonToolUse  StopReason = "tool_use"
	StopReasonLength   StopReason = "max_tokens"
	StopReasonStop     StopReason = "stop_sequence"
	StopReasonFiltered StopReason = "content_filter"
)

// ToolSchema describes a tool for the model.
type ToolSchema struct {
	// Name of the tool.
	Name string `json:"name"`

	// Description of what the tool does.
	Description string `json:"description"`

	// InputSchema is the JSON Schema for parameters.
	InputSchema map[string]any `json:"input_schema"`
}

// Model pricing for cost calculation (USD per 1M tokens).
var modelPricing = map[string]struct {
	InputPer1M  float64
	OutputPer1M float64
}{
	"claude-sonnet-4-20250514":   {3.00, 15.00},
	"claude-opus-4-20250514":     {15.00, 75.00},
	"claude-3-5-sonnet-20241022": {3.00, 15.00},
	"claude-3-5-haiku-20241022":  {0.80, 4.00},
	"claude-3-haiku-20240307":    {0.25, 1.25},
}

// CalculateCost calculates the cost of a request including prompt cache
// tokens. Cache writes cost 125% of base input price; cache reads cost 10%.
func CalculateCost(model string, inputTokens, outputTokens, cacheCreationTokens, cacheReadTokens int) float64 {
	pricing, ok := modelPricing[model]
	if !ok {
		pricing = modelPricing["claude-sonnet-4-20250514"]
	}

	inputCost := float64(inputTokens) / 1_000_000 * pricing.InputPer1M
	outputCost := float64(outputTokens) / 1_000_000 * pricing.OutputPer1M
	cacheWriteCost := float64(cacheCreationTokens) / 1_000_000 * pricing.InputPer1M * 1.25
	cacheReadCost := float64(cacheReadTokens) / 1_000_000 * pricing.InputPer1M * 0.10

	return inputCost + outputCost + cacheWriteCost + cacheReadCost
}
