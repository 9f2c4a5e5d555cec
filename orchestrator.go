package krrs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sapienskid/KRRS/llm"
	"github.com/sapienskid/KRRS/retrieval"
	"github.com/sapienskid/KRRS/search"
)

// phase is a state of the invocation machine. Transitions happen only through
// the step loop in Ask; there is no recursion between steps.
type phase int

const (
	phaseClassifying phase = iota
	phaseDispatch
	phaseSpecialist
	phaseTooling
	phaseCritiquing
	phaseResponding
)

func (p phase) String() string {
	switch p {
	case phaseClassifying:
		return "classifying"
	case phaseDispatch:
		return "dispatch"
	case phaseSpecialist:
		return "specialist_active"
	case phaseTooling:
		return "tooling"
	case phaseCritiquing:
		return "critiquing"
	case phaseResponding:
		return "responding"
	}
	return "unknown"
}

// Orchestrator runs question invocations through the state machine:
// classify, dispatch to a subject specialist, execute capability requests,
// critique, and either deliver or loop back for another specialist pass.
type Orchestrator struct {
	cfg         Config
	oracle      llm.LLM
	queryOracle llm.LLM
	retriever   retrieval.Retriever
	search      search.Provider
	tools       *ToolExecutor
	onEvent     EventFunc
	logger      *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLLM sets the oracle used by specialists and critique.
func WithLLM(oracle llm.LLM) Option {
	return func(o *Orchestrator) {
		o.oracle = oracle
	}
}

// WithQueryLLM sets a separate (typically cheaper) oracle for classification.
// When unset, the main oracle is used.
func WithQueryLLM(oracle llm.LLM) Option {
	return func(o *Orchestrator) {
		o.queryOracle = oracle
	}
}

// WithRetriever sets the knowledge-base collaborator.
func WithRetriever(r retrieval.Retriever) Option {
	return func(o *Orchestrator) {
		o.retriever = r
	}
}

// WithSearch sets the web-search collaborator.
func WithSearch(p search.Provider) Option {
	return func(o *Orchestrator) {
		o.search = p
	}
}

// WithEventFunc registers a callback for step events.
func WithEventFunc(fn EventFunc) Option {
	return func(o *Orchestrator) {
		o.onEvent = fn
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New builds an Orchestrator. Configuration is validated here, before any
// invocation runs; an invalid configuration is a hard constructor error, never
// a degraded answer.
func New(cfg Config, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.oracle == nil {
		return nil, ErrNoLLM
	}
	if o.retriever == nil {
		return nil, ErrNoRetriever
	}
	if o.queryOracle == nil {
		o.queryOracle = o.oracle
	}

	o.tools = &ToolExecutor{
		cfg:       &o.cfg,
		retriever: o.retriever,
		search:    o.search,
		logger:    o.logger,
	}

	return o, nil
}

// OnEvent registers the step-event callback after construction. It replaces
// any previously registered callback and must not be called while an
// invocation is running.
func (o *Orchestrator) OnEvent(fn EventFunc) {
	o.onEvent = fn
}

// Result is the outcome of one invocation.
type Result struct {
	ID             string
	Question       string
	Answer         string
	Subject        Subject
	CritiquePasses int
	ToolRounds     int
	Documents      int
	Messages       []Message

	InputTokens  int
	OutputTokens int
	CostUSD      float64
	Duration     time.Duration
}

// Ask runs one question through the full state machine and returns the
// delivered answer. State is created fresh per call and discarded on return;
// Ask is safe for concurrent use.
func (o *Orchestrator) Ask(ctx context.Context, question string) (*Result, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	id := uuid.NewString()
	start := time.Now()
	log := o.logger.With("invocation", id)

	st := NewState()
	st.Append(Message{Role: RoleUser, Content: question})

	result := &Result{ID: id, Question: question}

	var (
		profile      SubjectProfile
		pendingCalls []ToolCall
		current      = phaseClassifying
	)

	for {
		o.emit(id, EventPhase, current.String(), "")

		switch current {
		case phaseClassifying:
			subject, err := classify(ctx, o.queryOracle, question)
			if err != nil {
				var cerr *ClassificationError
				if !errors.As(err, &cerr) {
					return nil, err
				}
				// The oracle broke its labeling contract; fall back to
				// the general profile rather than failing the question.
				log.Warn("classification outside enumeration", "label", cerr.Label)
				subject = SubjectGeneral
			}
			st.Classification = subject
			log.Info("classified", "subject", subject)
			current = phaseDispatch

		case phaseDispatch:
			profile = Route(st.Classification)
			current = phaseSpecialist

		case phaseSpecialist:
			resp, err := o.runSpecialist(ctx, st, profile)
			if err != nil {
				return nil, err
			}
			result.InputTokens += resp.InputTokens
			result.OutputTokens += resp.OutputTokens
			result.CostUSD += resp.CostUSD

			last := st.LastMessage()
			if len(last.ToolCalls) == 0 {
				current = phaseCritiquing
				break
			}
			if result.ToolRounds >= o.cfg.toolRounds() {
				// The specialist keeps asking for tools; force an
				// evaluation of what it has.
				log.Warn("tool round limit reached", "rounds", result.ToolRounds)
				current = phaseCritiquing
				break
			}
			result.ToolRounds++
			pendingCalls = last.ToolCalls
			current = phaseTooling

		case phaseTooling:
			for _, call := range pendingCalls {
				o.emit(id, EventToolCall, current.String(), call.Name)
			}
			messages := o.tools.Execute(ctx, st, pendingCalls)
			st.Append(messages...)
			for _, m := range messages {
				o.emit(id, EventToolResult, current.String(), m.Name)
			}
			pendingCalls = nil
			// Control returns to the specialist selected by the
			// invocation's original classification.
			current = phaseSpecialist

		case phaseCritiquing:
			if result.CritiquePasses >= o.cfg.critiquePasses() {
				log.Warn("critique pass limit reached", "passes", result.CritiquePasses)
				current = phaseResponding
				break
			}
			result.CritiquePasses++

			decision, feedback, err := critique(ctx, o.oracle, question, st.AgentResponse, st.RetrievedDocs)
			if err != nil {
				var cerr *CritiqueError
				if !errors.As(err, &cerr) {
					return nil, err
				}
				// Malformed evaluation; deliver rather than loop on a
				// broken critic.
				log.Warn("critique outside enumeration", "decision", cerr.Decision)
				decision = DecisionRespond
			}
			st.CritiqueDecision = decision
			if feedback != "" {
				st.CritiqueFeedback = feedback
			}
			log.Info("critiqued", "decision", decision, "pass", result.CritiquePasses)

			if decision == DecisionRespond {
				current = phaseResponding
			} else {
				current = phaseSpecialist
			}

		case phaseResponding:
			answer := st.AgentResponse
			if strings.TrimSpace(answer) == "" {
				answer = fallbackAnswer
			}
			result.Answer = answer
			result.Subject = st.Classification
			result.Documents = len(st.RetrievedDocs)
			result.Messages = st.Messages
			result.Duration = time.Since(start)

			o.emit(id, EventCompleted, current.String(), "")
			log.Info("completed",
				"subject", result.Subject,
				"critique_passes", result.CritiquePasses,
				"tool_rounds", result.ToolRounds,
				"documents", result.Documents,
				"cost_usd", fmt.Sprintf("%.4f", result.CostUSD),
				"duration", result.Duration)
			return result, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
	}
}

// Close releases the orchestrator's collaborators.
func (o *Orchestrator) Close() error {
	if o.retriever != nil {
		return o.retriever.Close()
	}
	return nil
}
