// Package retrieval provides the document store boundary: a Retriever
// interface plus the bleve-local provider backed by an on-disk index.
package retrieval

import "context"

// Document is a stored unit of content with flat string metadata.
type Document struct {
	Content  string
	Metadata map[string]any
}

// Retriever is the knowledge-base boundary. Implementations scope every
// operation to a single tenant: Add stamps documents with the tenant id and
// Search filters on it.
type Retriever interface {
	// Search returns up to k documents matching the query.
	Search(ctx context.Context, query string, k int) ([]Document, error)

	// Add indexes documents.
	Add(ctx context.Context, docs []Document) error

	// Close releases the underlying index.
	Close() error
}
