package session

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/docchat-dev/docchat/pkg/summary"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "sessions"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return store
}

func TestFileStoreLoadMissingReturnsDefault(t *testing.T) {
	store := newTestStore(t)

	rec, err := store.Load(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rec.ChatHistory) != 0 || rec.HasSummary() {
		t.Errorf("missing session should load as default record, got %+v", rec)
	}
}

func TestFileStoreSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := &Record{
		ChatHistory: []Message{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
		},
		ActiveSummaryContent: "doc summary",
		ActiveSummaryMetadata: &summary.Metadata{
			OriginalFilename: "doc.pdf",
			SummaryID:        "abc",
		},
	}

	if err := store.Save(ctx, "work", rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(ctx, "work")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(loaded.ChatHistory, rec.ChatHistory) {
		t.Errorf("history = %+v", loaded.ChatHistory)
	}
	if loaded.ActiveSummaryContent != "doc summary" {
		t.Errorf("summary content = %q", loaded.ActiveSummaryContent)
	}
	if loaded.ActiveSummaryMetadata == nil || loaded.ActiveSummaryMetadata.OriginalFilename != "doc.pdf" {
		t.Errorf("summary metadata = %+v", loaded.ActiveSummaryMetadata)
	}
}

func TestFileStoreSaveOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "s", &Record{ChatHistory: []Message{{Role: "user", Content: "old"}}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(ctx, "s", DefaultRecord()); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	loaded, err := store.Load(ctx, "s")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.ChatHistory) != 0 {
		t.Errorf("save did not fully overwrite: %+v", loaded.ChatHistory)
	}
}

func TestFileStoreCoercesDamagedRecords(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		wantHistory int
		wantSummary bool
	}{
		{
			name:        "not json at all",
			data:        "{garbage",
			wantHistory: 0,
		},
		{
			name:        "history is not a list",
			data:        `{"chat_history": "oops", "active_api_summary_content": "s", "active_api_summary_metadata": {"summary_id": "x"}}`,
			wantHistory: 0,
			wantSummary: true,
		},
		{
			name:        "summary content wrong type",
			data:        `{"chat_history": [{"role":"user","content":"q"}], "active_api_summary_content": 42}`,
			wantHistory: 1,
			wantSummary: false,
		},
		{
			name:        "metadata without content is dropped",
			data:        `{"chat_history": [], "active_api_summary_metadata": {"summary_id": "x"}}`,
			wantHistory: 0,
			wantSummary: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			if err := os.WriteFile(store.path("damaged"), []byte(tt.data), 0600); err != nil {
				t.Fatalf("write damaged record: %v", err)
			}

			rec, err := store.Load(context.Background(), "damaged")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(rec.ChatHistory) != tt.wantHistory {
				t.Errorf("history len = %d, want %d", len(rec.ChatHistory), tt.wantHistory)
			}
			if rec.HasSummary() != tt.wantSummary {
				t.Errorf("HasSummary = %v, want %v", rec.HasSummary(), tt.wantSummary)
			}
			if !rec.HasSummary() && rec.ActiveSummaryMetadata != nil {
				t.Error("metadata kept without content")
			}
		})
	}
}

func TestFileStoreExistsListDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ok, err := store.Exists(ctx, "a")
	if err != nil || ok {
		t.Fatalf("Exists before save = %v %v", ok, err)
	}

	for _, name := range []string{"beta", "alpha"} {
		if err := store.Save(ctx, name, DefaultRecord()); err != nil {
			t.Fatalf("Save %s: %v", name, err)
		}
	}

	ok, err = store.Exists(ctx, "alpha")
	if err != nil || !ok {
		t.Fatalf("Exists after save = %v %v", ok, err)
	}

	names, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"alpha", "beta"}) {
		t.Errorf("List = %v, want lexicographic order", names)
	}

	deleted, err := store.Delete(ctx, "alpha")
	if err != nil || !deleted {
		t.Fatalf("Delete = %v %v", deleted, err)
	}
	deleted, err = store.Delete(ctx, "alpha")
	if err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if deleted {
		t.Error("second Delete reported existing")
	}
}

func TestFileStoreRejectsUnsafeNames(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"", "../x", "a/b", `a\b`} {
		if err := store.Save(ctx, name, DefaultRecord()); err == nil {
			t.Errorf("Save(%q) accepted unsafe name", name)
		}
		if _, err := store.Load(ctx, name); err == nil {
			t.Errorf("Load(%q) accepted unsafe name", name)
		}
	}
}

func TestFileStoreClosed(t *testing.T) {
	store := newTestStore(t)
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := store.Load(context.Background(), "x"); err != ErrStorageClosed {
		t.Errorf("Load after close = %v, want ErrStorageClosed", err)
	}
}
