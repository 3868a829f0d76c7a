// Package source reads scraped documents from the data folder.
package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"code.sajari.com/docconv"
	"github.com/cloo-solutions/docingest/internal/domain"
	"github.com/ledongthuc/pdf"
)

// Loader reads every regular file of one folder as a Document.
type Loader struct {
	dir string
}

// NewLoader creates a Loader for <dataDir>/<folder>
func NewLoader(dataDir, folder string) *Loader {
	return &Loader{dir: filepath.Join(dataDir, folder)}
}

// Dir returns the folder being read
func (l *Loader) Dir() string {
	return l.dir
}

// Load returns one document per file, ordered by file name. Subdirectories
// are ignored. HTML, PDF and Word files are converted to text; anything else
// is read as is.
func (l *Loader) Load(ctx context.Context) ([]domain.Document, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, domain.IOError(domain.StageLoad, fmt.Sprintf("failed to read source directory %s", l.dir), err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	docs := make([]domain.Document, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fullPath := filepath.Join(l.dir, entry.Name())
		text, err := readText(fullPath)
		if err != nil {
			return nil, domain.IOError(domain.StageLoad, fmt.Sprintf("failed to read %s", fullPath), err)
		}

		doc := domain.NewDocument(entry.Name(), text)
		if err := domain.ValidateDocument(doc); err != nil {
			return nil, domain.NewPipelineErrorWithCause(domain.ErrKindData, domain.StageLoad, fullPath, err)
		}
		docs = append(docs, *doc)
	}

	return docs, nil
}

func readText(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return PDFToText(path)
	case ".docx":
		return DocxToText(path)
	case ".html", ".htm":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return HTMLToText(data, false)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

// PDFToText extracts the plain text of every page of a PDF file.
func PDFToText(path string) (string, error) {
	f, rdr, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	b, err := rdr.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, b); err != nil {
		return "", fmt.Errorf("failed to read pdf buffer: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// DocxToText extracts the header, body and footer text of a Word document.
func DocxToText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	text, _, err := docconv.ConvertDocx(f)
	if err != nil {
		return "", fmt.Errorf("failed to convert docx: %w", err)
	}
	return strings.TrimSpace(text), nil
}
