package retrieval

import (
	"context"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/google/uuid"
)

// bleveDoc is the flat document shape stored in the index. Metadata that the
// core cares about is promoted to fields so it survives the round trip.
type bleveDoc struct {
	Content string `json:"content"`
	Source  string `json:"source"`
	Title   string `json:"title"`
	Type    string `json:"type"`
	UserID  string `json:"user_id"`
}

// BleveLocal is a Retriever backed by an on-disk bleve full-text index.
// All reads and writes are scoped to a single tenant id.
type BleveLocal struct {
	mu     sync.RWMutex
	index  bleve.Index
	userID string
	closed bool
}

// OpenBleve opens the index at path, creating it if missing. Every document
// added through the returned retriever is stamped with userID, and every
// search filters on it with an exact-match term query.
func OpenBleve(path, userID string) (*BleveLocal, error) {
	if userID == "" {
		return nil, fmt.Errorf("bleve retriever requires a user id")
	}

	index, err := bleve.Open(path)
	if err != nil {
		index, err = bleve.New(path, buildMapping())
		if err != nil {
			return nil, fmt.Errorf("create index at %s: %w", path, err)
		}
	}

	return &BleveLocal{index: index, userID: userID}, nil
}

// buildMapping returns the index mapping: content analyzed for full-text
// search, the filter fields indexed verbatim with the keyword analyzer.
func buildMapping() mapping.IndexMapping {
	exact := bleve.NewTextFieldMapping()
	exact.Analyzer = keyword.Name

	text := bleve.NewTextFieldMapping()

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("content", text)
	doc.AddFieldMappingsAt("title", text)
	doc.AddFieldMappingsAt("source", exact)
	doc.AddFieldMappingsAt("type", exact)
	doc.AddFieldMappingsAt("user_id", exact)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// Search returns up to k documents matching query, restricted to this
// retriever's tenant.
func (b *BleveLocal) Search(ctx context.Context, query string, k int) ([]Document, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if k <= 0 {
		k = 1
	}

	match := bleve.NewMatchQuery(query)
	tenant := bleve.NewTermQuery(b.userID)
	tenant.SetField("user_id")

	boolQuery := bleve.NewBooleanQuery()
	boolQuery.AddMust(match)
	boolQuery.AddMust(tenant)

	req := bleve.NewSearchRequestOptions(boolQuery, k, 0, false)
	req.Fields = []string{"*"}

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	docs := make([]Document, 0, len(result.Hits))
	for _, hit := range result.Hits {
		docs = append(docs, hitToDocument(hit.Fields))
	}
	return docs, nil
}

func hitToDocument(fields map[string]any) Document {
	content, _ := fields["content"].(string)
	md := make(map[string]any, 4)
	for _, key := range []string{"source", "title", "type", "user_id"} {
		if v, ok := fields[key].(string); ok && v != "" {
			md[key] = v
		}
	}
	return Document{Content: content, Metadata: md}
}

// Add indexes documents in one batch, stamping each with the tenant id.
func (b *BleveLocal) Add(ctx context.Context, docs []Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("index is closed")
	}

	batch := b.index.NewBatch()
	for _, d := range docs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		stored := bleveDoc{
			Content: d.Content,
			Source:  metaString(d.Metadata, "source"),
			Title:   metaString(d.Metadata, "title"),
			Type:    metaString(d.Metadata, "type"),
			UserID:  b.userID,
		}
		if err := batch.Index(uuid.NewString(), stored); err != nil {
			return fmt.Errorf("batch index: %w", err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Count returns the number of documents in the index across all tenants.
func (b *BleveLocal) Count() (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0, fmt.Errorf("index is closed")
	}
	return b.index.DocCount()
}

// Close releases the index.
func (b *BleveLocal) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}

func metaString(md map[string]any, key string) string {
	if v, ok := md[key].(string); ok {
		return v
	}
	return ""
}
