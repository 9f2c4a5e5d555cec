package krrs

import (
	"fmt"
	"sort"
	"strings"
)

// Document budget ceilings. The character ceilings were tuned against the
// len/4 token approximation; see EstimateTokens.
const (
	// DefaultMaxTotalTokens is the aggregate ceiling for a rendered
	// document collection.
	DefaultMaxTotalTokens = 50000

	// maxDocTokens is the per-document ceiling inside FormatDocs.
	maxDocTokens = 8000

	// markupReserveTokens is held back for the XML wrapper when the first
	// document alone would blow the aggregate ceiling.
	markupReserveTokens = 1000

	truncatedMarker        = "... [DOCUMENT TRUNCATED]"
	heavilyTruncatedMarker = "... [HEAVILY TRUNCATED DUE TO SIZE]"
	overflowMarker         = "\n\n... [CONTENT TRUNCATED TO PREVENT TOKEN OVERFLOW]"

	// emptyDocsMarker renders the no-documents case explicitly so prompts
	// can distinguish it from a formatting failure.
	emptyDocsMarker = "<documents></documents>"
)

// EstimateTokens approximates the token count of text as len(text)/4.
// This is deliberately imprecise (roughly one token per four characters of
// English); the document ceilings were tuned against this approximation, so
// it must not be swapped for an exact tokenizer.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// TruncateToTokenLimit cuts text so its estimated token count stays within
// maxTokens, keeping a 10% safety margin and appending an overflow marker.
func TruncateToTokenLimit(text string, maxTokens int) string {
	if text == "" || EstimateTokens(text) <= maxTokens {
		return text
	}
	target := int(float64(maxTokens*4) * 0.9)
	if len(text) > target {
		return text[:target] + overflowMarker
	}
	return text
}

// FormatDocs renders documents as an XML-ish block under the aggregate token
// ceiling. Individual documents are capped at maxDocTokens; documents past
// the aggregate ceiling are omitted with a count note; if even the first
// document would exceed the ceiling it is truncated aggressively to fit.
// An empty or nil collection renders the explicit empty-container marker.
func FormatDocs(docs []Document, maxTotalTokens int) string {
	if len(docs) == 0 {
		return emptyDocsMarker
	}
	if maxTotalTokens <= 0 {
		maxTotalTokens = DefaultMaxTotalTokens
	}

	var formatted []string
	total := 0
	for i, doc := range docs {
		content := doc.Content
		docTokens := EstimateTokens(content)

		if docTokens > maxDocTokens {
			target := int(float64(maxDocTokens*4) * 0.9)
			content = content[:target] + truncatedMarker
			docTokens = EstimateTokens(content)
		}

		if total+docTokens > maxTotalTokens {
			if i > 0 {
				break
			}
			remaining := maxTotalTokens - markupReserveTokens
			target := int(float64(remaining*4) * 0.9)
			if target < 0 {
				target = 0
			}
			if target > len(doc.Content) {
				target = len(doc.Content)
			}
			content = doc.Content[:target] + heavilyTruncatedMarker
		}

		block := formatDoc(doc.Metadata, content)
		formatted = append(formatted, block)
		total += EstimateTokens(block)
	}

	body := strings.Join(formatted, "\n")
	note := ""
	if len(formatted) < len(docs) {
		note = fmt.Sprintf(
			"\n<!-- Note: Showing %d of %d documents (others truncated to prevent token overflow) -->",
			len(formatted), len(docs))
	}

	result := "<documents>\n" + body + note + "\n</documents>"
	if EstimateTokens(result) > maxTotalTokens {
		result = TruncateToTokenLimit(result, maxTotalTokens)
	}
	return result
}

// formatDoc renders one document with its metadata as attributes. Keys are
// sorted so output is deterministic.
func formatDoc(metadata map[string]any, content string) string {
	var meta strings.Builder
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&meta, " %s=%q", k, fmt.Sprint(metadata[k]))
	}
	return fmt.Sprintf("<document%s>\n%s\n</document>", meta.String(), content)
}
