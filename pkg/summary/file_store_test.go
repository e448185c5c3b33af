package summary

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "summaries"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return store
}

func TestFileStoreSaveAndLoad(t *testing.T) {
	store := newTestStore(t)

	rec, err := store.Save("summary text", "report.pdf")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("Save did not assign an id")
	}
	if rec.Metadata.SummaryID != rec.ID {
		t.Errorf("metadata summary_id = %q, want %q", rec.Metadata.SummaryID, rec.ID)
	}
	if rec.Metadata.OriginalFilename != "report.pdf" {
		t.Errorf("original filename = %q", rec.Metadata.OriginalFilename)
	}
	if _, err := time.Parse(time.RFC3339, rec.Timestamp); err != nil {
		t.Errorf("timestamp %q not RFC3339: %v", rec.Timestamp, err)
	}

	loaded, err := store.Load(rec.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Content != "summary text" {
		t.Errorf("content = %q", loaded.Content)
	}
}

func TestFileStoreLoadMissing(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Load("no-such-id"); !errors.Is(err, ErrSummaryNotFound) {
		t.Errorf("err = %v, want ErrSummaryNotFound", err)
	}
}

func TestFileStoreLoadRejectsTraversal(t *testing.T) {
	store := newTestStore(t)
	for _, id := range []string{"", "../escape", "a/b", `a\b`} {
		if _, err := store.Load(id); err == nil {
			t.Errorf("Load(%q) accepted unsafe id", id)
		}
	}
}

func TestFileStoreListNewestFirst(t *testing.T) {
	store := newTestStore(t)

	first, err := store.Save("first", "a.pdf")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	// Same-second timestamps sort unstably; backdate the first record.
	backdate(t, store, first.ID, time.Now().UTC().Add(-time.Hour))

	second, err := store.Save("second", "b.pdf")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	records, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len = %d, want 2", len(records))
	}
	if records[0].ID != second.ID || records[1].ID != first.ID {
		t.Errorf("order = [%s %s], want newest first", records[0].ID, records[1].ID)
	}
}

func TestFileStoreListSkipsCorrupt(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Save("good", "a.pdf"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := os.WriteFile(filepath.Join(store.dir, "bad.json"), []byte("{not json"), 0600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	records, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("len = %d, want 1 (corrupt skipped)", len(records))
	}
}

func TestFileStoreDelete(t *testing.T) {
	store := newTestStore(t)

	rec, err := store.Save("to delete", "a.pdf")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	ok, err := store.Delete(rec.ID)
	if err != nil || !ok {
		t.Fatalf("Delete = %v %v, want true nil", ok, err)
	}

	ok, err = store.Delete(rec.ID)
	if err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if ok {
		t.Error("second Delete reported existing")
	}

	if _, err := store.Load(rec.ID); !errors.Is(err, ErrSummaryNotFound) {
		t.Errorf("Load after delete = %v, want ErrSummaryNotFound", err)
	}
}

func backdate(t *testing.T, store *FileStore, id string, ts time.Time) {
	t.Helper()
	rec, err := store.Load(id)
	if err != nil {
		t.Fatalf("Load for backdate: %v", err)
	}
	rec.Timestamp = ts.Format(time.RFC3339)
	rec.Metadata.Timestamp = rec.Timestamp

	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		t.Fatalf("marshal for backdate: %v", err)
	}
	if err := os.WriteFile(filepath.Join(store.dir, id+".json"), out, 0600); err != nil {
		t.Fatalf("write for backdate: %v", err)
	}
}
