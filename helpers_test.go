package krrs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/sapienskid/KRRS/llm"
	"github.com/sapienskid/KRRS/retrieval"
	"github.com/sapienskid/KRRS/search"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeOracle replays scripted responses. Generate and GenerateStructured each
// consume their own queue; the last entry repeats once the queue drains.
type fakeOracle struct {
	mu         sync.Mutex
	generate   []*llm.Response
	structured []map[string]any
	genErr     error
	prompts    []string
	toolSets   [][]llm.ToolSchema
}

func (f *fakeOracle) Generate(ctx context.Context, messages []llm.Message, tools []llm.ToolSchema) (*llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.genErr != nil {
		return nil, f.genErr
	}
	if len(messages) > 0 {
		f.prompts = append(f.prompts, messages[len(messages)-1].Content)
	}
	f.toolSets = append(f.toolSets, tools)
	if len(f.generate) == 0 {
		return &llm.Response{Content: "default answer"}, nil
	}
	resp := f.generate[0]
	if len(f.generate) > 1 {
		f.generate = f.generate[1:]
	}
	return resp, nil
}

func (f *fakeOracle) GenerateStructured(ctx context.Context, messages []llm.Message, schema llm.ToolSchema) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.structured) == 0 {
		return nil, errors.New("no scripted structured output")
	}
	out := f.structured[0]
	if len(f.structured) > 1 {
		f.structured = f.structured[1:]
	}
	return out, nil
}

// fakeRetriever returns canned documents, or fails when err is set.
type fakeRetriever struct {
	mu      sync.Mutex
	docs    []retrieval.Document
	err     error
	queries []string
	added   []retrieval.Document
}

func (f *fakeRetriever) Search(ctx context.Context, query string, k int) ([]retrieval.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	if k > len(f.docs) {
		k = len(f.docs)
	}
	return f.docs[:k], nil
}

func (f *fakeRetriever) Add(ctx context.Context, docs []retrieval.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.added = append(f.added, docs...)
	return nil
}

func (f *fakeRetriever) Close() error { return nil }

// fakeSearch returns canned web results.
type fakeSearch struct {
	results []search.Result
	err     error
}

func (f *fakeSearch) Search(ctx context.Context, query string, maxResults int) ([]search.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	if maxResults > len(f.results) {
		maxResults = len(f.results)
	}
	return f.results[:maxResults], nil
}

func testConfig() Config {
	return Config{
		UserID:            "tester",
		RetrieverProvider: ProviderBleveLocal,
		RetrieveK:         1,
		MaxCritiquePasses: 3,
		MaxToolRounds:     8,
	}
}

// newTestOrchestrator wires an orchestrator over fakes.
func newTestOrchestrator(t interface{ Fatalf(string, ...any) }, cfg Config, oracle *fakeOracle, retr *fakeRetriever, opts ...Option) *Orchestrator {
	all := append([]Option{WithLLM(oracle), WithRetriever(retr), WithLogger(testLogger())}, opts...)
	orc, err := New(cfg, all...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return orc
}
