package krrs

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/sapienskid/KRRS/fetch"
	"github.com/sapienskid/KRRS/retrieval"
)

// minIndexableChars is the smallest extraction considered real content; under
// this it is usually an error page or a bare redirect.
const minIndexableChars = 200

// indexWorkers bounds the URL extraction fan-out.
const indexWorkers = 4

// URLReport is the per-URL outcome of an indexing run.
type URLReport struct {
	URL     string `json:"url"`
	OK      bool   `json:"ok"`
	Title   string `json:"title,omitempty"`
	Chars   int    `json:"chars,omitempty"`
	Error   string `json:"error,omitempty"`
	Skipped string `json:"skipped,omitempty"`
}

// Indexer feeds documents into the knowledge base: URL extraction, content
// validation, tenant stamping, bulk add.
type Indexer struct {
	cfg       Config
	retriever retrieval.Retriever
	client    *http.Client
	logger    *slog.Logger
}

// NewIndexer builds an Indexer over an open retriever.
func NewIndexer(cfg Config, r retrieval.Retriever) *Indexer {
	return &Indexer{
		cfg:       cfg,
		retriever: r,
		client:    fetch.DefaultClient,
		logger:    slog.Default(),
	}
}

// IndexURLs extracts content from every URL concurrently, validates it, and
// bulk-adds the surviving documents. Every URL gets a report entry; a URL
// whose extraction fails never blocks the others. When no URL yields valid
// content the run fails with ErrNoValidDocuments.
func (ix *Indexer) IndexURLs(ctx context.Context, urls []string) ([]URLReport, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("no urls given")
	}

	docs := make([]Document, len(urls))

	sem := make(chan struct{}, indexWorkers)
	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			docs[i] = ix.extract(ctx, u)
		}(i, u)
	}
	wg.Wait()

	reports := make([]URLReport, len(urls))
	var valid []Document
	for i, doc := range docs {
		reports[i] = ix.validate(urls[i], doc)
		if reports[i].OK {
			valid = append(valid, doc.WithMeta(MetaUserID, ix.cfg.UserID))
		}
	}

	if len(valid) == 0 {
		return reports, ErrNoValidDocuments
	}

	if err := ix.add(ctx, valid); err != nil {
		return reports, fmt.Errorf("index documents: %w", err)
	}

	ix.logger.Info("indexed urls", "total", len(urls), "valid", len(valid))
	return reports, nil
}

// extract always yields a Document; failed extractions carry type=error and
// extraction_success=false so validation can drop them uniformly.
func (ix *Indexer) extract(ctx context.Context, url string) Document {
	extracted, err := fetch.URL(ctx, ix.client, url)
	if err != nil {
		ix.logger.Warn("extraction failed", "url", url, "error", err)
		return NewDocument(err.Error(), map[string]any{
			MetaSource:            url,
			MetaType:              "error",
			MetaExtractionSuccess: false,
		})
	}
	return NewDocument(extracted.Content, map[string]any{
		MetaSource:            url,
		MetaTitle:             extracted.Title,
		MetaType:              "web_page",
		MetaExtractionSuccess: true,
	})
}

func (ix *Indexer) validate(url string, doc Document) URLReport {
	report := URLReport{URL: url}

	if ok, _ := doc.Metadata[MetaExtractionSuccess].(bool); !ok {
		report.Error = doc.Content
		return report
	}
	if len(doc.Content) < minIndexableChars {
		report.Skipped = fmt.Sprintf("content too short (%d chars)", len(doc.Content))
		return report
	}
	if strings.TrimSpace(doc.Content) == url {
		report.Skipped = "content is just the url"
		return report
	}

	report.OK = true
	report.Title = doc.Title("")
	report.Chars = len(doc.Content)
	return report
}

// IndexDocuments adds raw text documents, stamping each with the tenant id.
// Documents shorter than the validity floor are rejected.
func (ix *Indexer) IndexDocuments(ctx context.Context, docs []Document) (int, error) {
	var valid []Document
	for _, doc := range docs {
		if len(doc.Content) < minIndexableChars {
			continue
		}
		valid = append(valid, doc.WithMeta(MetaUserID, ix.cfg.UserID))
	}
	if len(valid) == 0 {
		return 0, ErrNoValidDocuments
	}
	if err := ix.add(ctx, valid); err != nil {
		return 0, err
	}
	return len(valid), nil
}

func (ix *Indexer) add(ctx context.Context, docs []Document) error {
	stored := make([]retrieval.Document, 0, len(docs))
	for _, d := range docs {
		stored = append(stored, retrieval.Document{Content: d.Content, Metadata: d.Metadata})
	}
	return ix.retriever.Add(ctx, stored)
}
