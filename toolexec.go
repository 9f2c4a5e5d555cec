package krrs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/sapienskid/KRRS/llm"
	"github.com/sapienskid/KRRS/retrieval"
	"github.com/sapienskid/KRRS/search"
)

// Capability names the specialist may request.
const (
	ToolRetrieveDocuments = "retrieve_documents"
	ToolWebSearch         = "web_search"
)

// Per-capability content ceilings. Tool results are the main source of prompt
// growth, so content is cut before it ever reaches the working document set.
const (
	retrievedDocMaxChars = 3000
	webContentMaxChars   = 2000

	retrievalSummaryChars = 300
	webSummaryChars       = 200

	webSearchMaxResults = 3

	retrievalTruncatedMarker = "... [TRUNCATED FOR TOKEN EFFICIENCY]"
	webTruncatedMarker       = "... [WEB CONTENT TRUNCATED]"
)

var toolSchemas = map[string]llm.ToolSchema{
	ToolRetrieveDocuments: {
		Name:        ToolRetrieveDocuments,
		Description: "Search the knowledge base for documents relevant to a query.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query.",
				},
			},
			"required": []string{"query"},
		},
	},
	ToolWebSearch: {
		Name:        ToolWebSearch,
		Description: "Search the web for current information when the knowledge base is insufficient.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query.",
				},
			},
			"required": []string{"query"},
		},
	},
}

// ToolExecutor runs capability requests against the retrieval and search
// collaborators. Collaborator failures never escape it: they are stringified
// into tool-result messages so the specialist can route around them.
type ToolExecutor struct {
	cfg       *Config
	retriever retrieval.Retriever
	search    search.Provider
	logger    *slog.Logger
}

// toolOutcome pairs a request's result text with the documents it produced.
type toolOutcome struct {
	content string
	docs    []Document
}

// Execute runs all requests from one specialist activation. Requests run
// concurrently; result messages and document appends merge back in request
// order so the conversation and the working set stay deterministic.
func (e *ToolExecutor) Execute(ctx context.Context, st *State, calls []ToolCall) []Message {
	outcomes := make([]toolOutcome, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call ToolCall) {
			defer wg.Done()
			outcomes[i] = e.run(ctx, call)
		}(i, call)
	}
	wg.Wait()

	messages := make([]Message, 0, len(calls))
	for i, call := range calls {
		st.AddDocs(outcomes[i].docs...)
		messages = append(messages, toolResult(call, outcomes[i].content))
	}
	return messages
}

func (e *ToolExecutor) run(ctx context.Context, call ToolCall) toolOutcome {
	query, _ := call.Arguments["query"].(string)

	switch call.Name {
	case ToolRetrieveDocuments:
		return e.retrieve(ctx, query)
	case ToolWebSearch:
		return e.webSearch(ctx, query)
	}
	return toolOutcome{content: "Unknown tool: " + call.Name}
}

// retrieve searches the knowledge base. Errors degrade to a descriptive
// result string with the working documents untouched.
func (e *ToolExecutor) retrieve(ctx context.Context, query string) toolOutcome {
	if e.retriever == nil {
		return toolOutcome{content: "Error retrieving documents: no retriever configured"}
	}

	found, err := e.retriever.Search(ctx, query, e.cfg.retrieveK())
	if err != nil {
		e.logger.Warn("retrieval failed", "query", query, "error", err)
		return toolOutcome{content: fmt.Sprintf("Error retrieving documents: %v", err)}
	}

	if len(found) == 0 {
		msg := fmt.Sprintf("No documents found for query: '%s'.", query)
		if e.cfg.EnableWebSearch && e.search != nil {
			msg += " Consider using web_search for current information."
		}
		return toolOutcome{content: msg}
	}

	docs := make([]Document, 0, len(found))
	var summary strings.Builder
	fmt.Fprintf(&summary, "Retrieved %d documents:\n", len(found))
	for i, f := range found {
		doc := NewDocument(f.Content, f.Metadata).Truncated(retrievedDocMaxChars, retrievalTruncatedMarker)
		docs = append(docs, doc)
		fmt.Fprintf(&summary, "\n[%d] %s (source: %s)\n%s\n",
			i+1, doc.Title("Untitled"), doc.Source(), snippet(doc.Content, retrievalSummaryChars))
	}
	return toolOutcome{content: summary.String(), docs: docs}
}

// webSearch queries the configured provider. Results become working documents
// with web_search metadata, under the same failure policy as retrieval.
func (e *ToolExecutor) webSearch(ctx context.Context, query string) toolOutcome {
	if e.search == nil || !e.cfg.EnableWebSearch {
		return toolOutcome{content: "Error performing web search: web search is not enabled"}
	}

	results, err := e.search.Search(ctx, query, webSearchMaxResults)
	if err != nil {
		e.logger.Warn("web search failed", "query", query, "error", err)
		return toolOutcome{content: fmt.Sprintf("Error performing web search: %v", err)}
	}

	if len(results) == 0 {
		return toolOutcome{content: fmt.Sprintf("No web results found for query: '%s'.", query)}
	}

	docs := make([]Document, 0, len(results))
	var summary strings.Builder
	fmt.Fprintf(&summary, "Found %d web results:\n", len(results))
	for i, r := range results {
		doc := NewDocument(r.Content, map[string]any{
			MetaSource: r.URL,
			MetaTitle:  r.Title,
			MetaType:   "web_search",
		}).Truncated(webContentMaxChars, webTruncatedMarker)
		docs = append(docs, doc)
		fmt.Fprintf(&summary, "\n[%d] %s (%s)\n%s\n",
			i+1, r.Title, r.URL, snippet(r.Content, webSummaryChars))
	}
	return toolOutcome{content: summary.String(), docs: docs}
}

// schemasFor returns the tool schemas available to a specialist profile,
// dropping web_search when it is not configured.
func (e *ToolExecutor) schemasFor(profile SubjectProfile) []llm.ToolSchema {
	schemas := make([]llm.ToolSchema, 0, len(profile.Tools))
	for _, name := range profile.Tools {
		if name == ToolWebSearch && (e.search == nil || !e.cfg.EnableWebSearch) {
			continue
		}
		if schema, ok := toolSchemas[name]; ok {
			schemas = append(schemas, schema)
		}
	}
	return schemas
}

// snippet returns the first maxChars of text with an ellipsis when cut.
func snippet(text string, maxChars int) string {
	if len(text) <= maxChars {
		return text
	}
	return text[:maxChars] + "..."
}
