package pdf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/docchat-dev/docchat/pkg/session"
)

// ErrExportNotFound is returned when an export doesn't exist.
var ErrExportNotFound = errors.New("export not found")

// ErrInvalidExportName is returned when an export or session name
// contains unsafe characters.
var ErrInvalidExportName = errors.New("invalid export name: contains path separator or traversal sequence")

func validateComponent(s string) error {
	if s == "" {
		return errors.New("name cannot be empty")
	}
	if strings.ContainsAny(s, `/\`) || strings.Contains(s, "..") {
		return ErrInvalidExportName
	}
	return nil
}

// Exporter renders chat transcripts to PDF files grouped by session:
//
//	<dir>/
//	  └── <session-name>/
//	      └── <export-name>.pdf
type Exporter struct {
	dir string
}

// NewExporter creates an exporter rooted at dir.
func NewExporter(dir string) (*Exporter, error) {
	if dir == "" {
		return nil, errors.New("export directory is required")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	return &Exporter{dir: dir}, nil
}

// normalizeName appends the .pdf suffix when missing.
func normalizeName(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return name
	}
	return name + ".pdf"
}

// Export renders the messages to <dir>/<sessionName>/<name>.pdf and
// returns the file path. System turns are not part of the transcript.
func (e *Exporter) Export(sessionName, name string, messages []session.Message) (string, error) {
	if err := validateComponent(sessionName); err != nil {
		return "", fmt.Errorf("invalid session name: %w", err)
	}
	if err := validateComponent(name); err != nil {
		return "", err
	}

	sessionDir := filepath.Join(e.dir, sessionName)
	if err := os.MkdirAll(sessionDir, 0700); err != nil {
		return "", fmt.Errorf("create session export directory: %w", err)
	}

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle("Chat transcript: "+sessionName, true)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 14)
	doc.MultiCell(0, 8, "Chat transcript: "+sessionName, "", "L", false)
	doc.Ln(4)

	for _, m := range messages {
		if m.Role == "system" {
			continue
		}

		label := "You"
		if m.Role == "assistant" {
			label = "Assistant"
		}

		doc.SetFont("Helvetica", "B", 11)
		doc.MultiCell(0, 6, label+":", "", "L", false)
		doc.SetFont("Helvetica", "", 11)
		doc.MultiCell(0, 6, m.Content, "", "L", false)
		doc.Ln(3)
	}

	path := filepath.Join(sessionDir, normalizeName(name))
	if err := doc.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write export %s: %w", path, err)
	}
	return path, nil
}

// List returns the export file names for a session, sorted.
func (e *Exporter) List(sessionName string) ([]string, error) {
	if err := validateComponent(sessionName); err != nil {
		return nil, fmt.Errorf("invalid session name: %w", err)
	}

	entries, err := os.ReadDir(filepath.Join(e.dir, sessionName))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read export directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".pdf") {
			continue
		}
		names = append(names, entry.Name())
	}

	sort.Strings(names)
	return names, nil
}

// Path returns the file path of an existing export.
// Returns ErrExportNotFound if the export doesn't exist.
func (e *Exporter) Path(sessionName, name string) (string, error) {
	if err := validateComponent(sessionName); err != nil {
		return "", fmt.Errorf("invalid session name: %w", err)
	}
	if err := validateComponent(name); err != nil {
		return "", err
	}

	path := filepath.Join(e.dir, sessionName, normalizeName(name))
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", ErrExportNotFound
		}
		return "", fmt.Errorf("stat export: %w", err)
	}
	return path, nil
}

// Delete removes an export. Reports whether it existed.
func (e *Exporter) Delete(sessionName, name string) (bool, error) {
	if err := validateComponent(sessionName); err != nil {
		return false, fmt.Errorf("invalid session name: %w", err)
	}
	if err := validateComponent(name); err != nil {
		return false, err
	}

	err := os.Remove(filepath.Join(e.dir, sessionName, normalizeName(name)))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("delete export: %w", err)
	}
	return true, nil
}
