package pdf

import (
	"errors"
	"os"
	"reflect"
	"testing"

	"github.com/docchat-dev/docchat/pkg/session"
)

func newTestExporter(t *testing.T) *Exporter {
	t.Helper()
	e, err := NewExporter(t.TempDir())
	if err != nil {
		t.Fatalf("NewExporter: %v", err)
	}
	return e
}

var sampleTranscript = []session.Message{
	{Role: "system", Content: "internal instructions"},
	{Role: "user", Content: "what is in the report?"},
	{Role: "assistant", Content: "the report covers quarterly results"},
}

func TestExportCreatesFile(t *testing.T) {
	e := newTestExporter(t)

	path, err := e.Export("work", "notes", sampleTranscript)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat export: %v", err)
	}
	if info.Size() == 0 {
		t.Error("export file is empty")
	}
}

func TestExportAddsSuffix(t *testing.T) {
	e := newTestExporter(t)

	if _, err := e.Export("work", "notes", sampleTranscript); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if _, err := e.Export("work", "other.pdf", sampleTranscript); err != nil {
		t.Fatalf("Export with suffix: %v", err)
	}

	names, err := e.List("work")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"notes.pdf", "other.pdf"}) {
		t.Errorf("List = %v", names)
	}
}

func TestExportRejectsUnsafeNames(t *testing.T) {
	e := newTestExporter(t)

	if _, err := e.Export("../escape", "n", sampleTranscript); err == nil {
		t.Error("unsafe session name accepted")
	}
	if _, err := e.Export("work", "a/b", sampleTranscript); err == nil {
		t.Error("unsafe export name accepted")
	}
}

func TestPathAndDelete(t *testing.T) {
	e := newTestExporter(t)

	if _, err := e.Path("work", "missing"); !errors.Is(err, ErrExportNotFound) {
		t.Errorf("Path for missing = %v, want ErrExportNotFound", err)
	}

	if _, err := e.Export("work", "notes", sampleTranscript); err != nil {
		t.Fatalf("Export: %v", err)
	}

	// Suffix is optional on lookup.
	if _, err := e.Path("work", "notes"); err != nil {
		t.Errorf("Path without suffix: %v", err)
	}
	if _, err := e.Path("work", "notes.pdf"); err != nil {
		t.Errorf("Path with suffix: %v", err)
	}

	ok, err := e.Delete("work", "notes")
	if err != nil || !ok {
		t.Fatalf("Delete = %v %v", ok, err)
	}
	ok, err = e.Delete("work", "notes")
	if err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if ok {
		t.Error("second Delete reported existing")
	}
}

func TestListEmptySession(t *testing.T) {
	e := newTestExporter(t)

	names, err := e.List("never-exported")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("List = %v, want empty", names)
	}
}
