package krrs

// Metadata keys recognized by the core.
const (
	MetaSource            = "source"
	MetaTitle             = "title"
	MetaType              = "type"
	MetaUserID            = "user_id"
	MetaExtractionSuccess = "extraction_success"
)

// Document is a unit of retrieved or indexed content. Documents are immutable
// once created; truncation produces a new Document.
type Document struct {
	Content  string
	Metadata map[string]any
}

// NewDocument creates a Document with a copy of the given metadata.
func NewDocument(content string, metadata map[string]any) Document {
	md := make(map[string]any, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}
	return Document{Content: content, Metadata: md}
}

// Truncated returns a new Document whose content is capped at maxChars, with
// the marker appended when content was cut. The original is not modified.
func (d Document) Truncated(maxChars int, marker string) Document {
	if len(d.Content) <= maxChars {
		return d
	}
	return Document{Content: d.Content[:maxChars] + marker, Metadata: d.Metadata}
}

// WithMeta returns a new Document with one metadata key set.
func (d Document) WithMeta(key string, value any) Document {
	md := make(map[string]any, len(d.Metadata)+1)
	for k, v := range d.Metadata {
		md[k] = v
	}
	md[key] = value
	return Document{Content: d.Content, Metadata: md}
}

// Source returns the source metadata value, or "Unknown" when absent.
func (d Document) Source() string {
	if s, ok := d.Metadata[MetaSource].(string); ok && s != "" {
		return s
	}
	return "Unknown"
}

// Title returns the title metadata value, or the fallback when absent.
func (d Document) Title(fallback string) string {
	if t, ok := d.Metadata[MetaTitle].(string); ok && t != "" {
		return t
	}
	return fallback
}
