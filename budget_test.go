package krrs

import (
	"fmt"
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"abcd", 1},
		{"abcdefg", 1},
		{"abcdefgh", 2},
		{strings.Repeat("x", 4000), 1000},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%d chars) = %d, want %d", len(tt.text), got, tt.want)
		}
	}
}

func TestTruncateToTokenLimit(t *testing.T) {
	short := "hello world"
	if got := TruncateToTokenLimit(short, 100); got != short {
		t.Errorf("short text should pass through unchanged, got %q", got)
	}

	long := strings.Repeat("a", 10000)
	got := TruncateToTokenLimit(long, 100)
	if !strings.HasSuffix(got, overflowMarker) {
		t.Errorf("truncated text missing overflow marker")
	}
	// 10% margin: 100 tokens * 4 chars * 0.9 = 360 chars of content.
	if want := 360 + len(overflowMarker); len(got) != want {
		t.Errorf("truncated length = %d, want %d", len(got), want)
	}
}

func TestFormatDocsEmpty(t *testing.T) {
	for _, docs := range [][]Document{nil, {}} {
		if got := FormatDocs(docs, DefaultMaxTotalTokens); got != emptyDocsMarker {
			t.Errorf("FormatDocs(empty) = %q, want %q", got, emptyDocsMarker)
		}
	}
}

func TestFormatDocsEmptyContentDocument(t *testing.T) {
	// A document with empty content is not the same as no documents.
	docs := []Document{NewDocument("", map[string]any{MetaSource: "s"})}
	got := FormatDocs(docs, DefaultMaxTotalTokens)
	if got == emptyDocsMarker {
		t.Errorf("empty-content document rendered as empty collection")
	}
	if !strings.Contains(got, `source="s"`) {
		t.Errorf("metadata missing from rendered block: %q", got)
	}
}

func TestFormatDocsPerDocCeiling(t *testing.T) {
	huge := strings.Repeat("b", maxDocTokens*4*2)
	got := FormatDocs([]Document{NewDocument(huge, nil)}, DefaultMaxTotalTokens)
	if !strings.Contains(got, truncatedMarker) {
		t.Errorf("oversized document not truncated with %q", truncatedMarker)
	}
	if EstimateTokens(got) > DefaultMaxTotalTokens {
		t.Errorf("rendered output exceeds aggregate ceiling")
	}
}

func TestFormatDocsAggregateCeiling(t *testing.T) {
	// Each doc is ~2500 tokens; with a 6000-token budget only two fit.
	var docs []Document
	for i := 0; i < 4; i++ {
		docs = append(docs, NewDocument(strings.Repeat("c", 10000), map[string]any{MetaSource: fmt.Sprintf("d%d", i)}))
	}
	got := FormatDocs(docs, 6000)

	if !strings.Contains(got, "Showing 2 of 4 documents") {
		t.Errorf("omitted-count note missing or wrong: %q", got[len(got)-200:])
	}
	if strings.Contains(got, `source="d2"`) || strings.Contains(got, `source="d3"`) {
		t.Errorf("documents past the ceiling were rendered")
	}
}

func TestFormatDocsFirstDocOverBudget(t *testing.T) {
	// A single document larger than the whole budget is cut aggressively
	// rather than dropped.
	huge := strings.Repeat("d", 100000)
	got := FormatDocs([]Document{NewDocument(huge, nil)}, 5000)

	if !strings.Contains(got, heavilyTruncatedMarker) {
		t.Errorf("first-document overflow missing %q", heavilyTruncatedMarker)
	}
	if EstimateTokens(got) > 5000 {
		t.Errorf("rendered output exceeds the budget: %d tokens", EstimateTokens(got))
	}
}

func TestFormatDocsDeterministicMetadata(t *testing.T) {
	doc := NewDocument("content", map[string]any{
		"zeta": "1", "alpha": "2", "mid": "3",
	})
	first := FormatDocs([]Document{doc}, DefaultMaxTotalTokens)
	for i := 0; i < 10; i++ {
		if got := FormatDocs([]Document{doc}, DefaultMaxTotalTokens); got != first {
			t.Fatalf("metadata rendering is not deterministic")
		}
	}
	if strings.Index(first, "alpha") > strings.Index(first, "zeta") {
		t.Errorf("metadata keys not sorted: %q", first)
	}
}
