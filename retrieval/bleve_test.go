package retrieval

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestIndex(t *testing.T, path, userID string) *BleveLocal {
	t.Helper()
	b, err := OpenBleve(path, userID)
	if err != nil {
		t.Fatalf("OpenBleve: %v", err)
	}
	return b
}

func TestOpenBleveRequiresUserID(t *testing.T) {
	if _, err := OpenBleve(filepath.Join(t.TempDir(), "idx"), ""); err == nil {
		t.Error("empty user id accepted")
	}
}

func TestBleveAddAndSearch(t *testing.T) {
	ctx := context.Background()
	b := openTestIndex(t, filepath.Join(t.TempDir(), "idx"), "alice")
	defer b.Close()

	docs := []Document{
		{Content: "The mitochondria is the powerhouse of the cell.", Metadata: map[string]any{"source": "bio.txt", "title": "Cells", "type": "file"}},
		{Content: "The Treaty of Versailles ended the first world war.", Metadata: map[string]any{"source": "history.txt", "title": "Treaties", "type": "file"}},
	}
	if err := b.Add(ctx, docs); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := b.Search(ctx, "mitochondria powerhouse", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d hits, want 1", len(got))
	}
	if got[0].Content != docs[0].Content {
		t.Errorf("content = %q", got[0].Content)
	}
	// Promoted metadata survives the round trip.
	if got[0].Metadata["source"] != "bio.txt" || got[0].Metadata["title"] != "Cells" {
		t.Errorf("metadata = %+v", got[0].Metadata)
	}
	if got[0].Metadata["user_id"] != "alice" {
		t.Errorf("tenant stamp = %v", got[0].Metadata["user_id"])
	}
}

func TestBleveSearchRespectsK(t *testing.T) {
	ctx := context.Background()
	b := openTestIndex(t, filepath.Join(t.TempDir(), "idx"), "alice")
	defer b.Close()

	docs := []Document{
		{Content: "entropy always increases in a closed system"},
		{Content: "entropy measures disorder"},
		{Content: "entropy and the arrow of time"},
	}
	if err := b.Add(ctx, docs); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := b.Search(ctx, "entropy", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d hits, want 2", len(got))
	}

	// k <= 0 falls back to a single hit.
	got, err = b.Search(ctx, "entropy", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d hits, want 1", len(got))
	}
}

func TestBleveTenantIsolation(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "idx")

	alice := openTestIndex(t, path, "alice")
	if err := alice.Add(ctx, []Document{{Content: "quantum mechanics notes from alice"}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := alice.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	bob := openTestIndex(t, path, "bob")
	defer bob.Close()
	if err := bob.Add(ctx, []Document{{Content: "quantum computing notes from bob"}}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := bob.Search(ctx, "quantum", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("bob sees %d docs, want 1", len(got))
	}
	if got[0].Metadata["user_id"] != "bob" {
		t.Errorf("bob retrieved another tenant's document: %+v", got[0].Metadata)
	}

	n, err := bob.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("index holds %d docs, want 2 across tenants", n)
	}
}

func TestBleveClosedIndex(t *testing.T) {
	b := openTestIndex(t, filepath.Join(t.TempDir(), "idx"), "alice")
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := b.Search(context.Background(), "q", 1); err == nil {
		t.Error("search on closed index succeeded")
	}
	if err := b.Add(context.Background(), []Document{{Content: "x"}}); err == nil {
		t.Error("add on closed index succeeded")
	}
}
