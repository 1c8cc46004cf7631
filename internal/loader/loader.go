// Package loader turns uploaded files into ordered text chunks ready for embedding.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrUnsupportedExtension = errors.New("unsupported file extension")
	ErrNoText               = errors.New("no extractable text")
)

// Source is where document text comes from: a file on disk or text already extracted.
type Source struct {
	Path    string
	Content string
}

// Document is the extracted text of a source and its chunks in reading order.
type Document struct {
	Text   string
	Chunks []string
}

// Extractor pulls plain text out of one file format.
type Extractor func(path string) (string, error)

var extractors = map[string]Extractor{
	".pdf":  extractPDF,
	".docx": extractDOCX,
	".html": extractHTML,
	".htm":  extractHTML,
	".csv":  extractCSV,
	".xlsx": extractXLSX,
	".txt":  extractPlain,
	".md":   extractPlain,
}

// Supports reports whether ext (with leading dot, any case) has an extractor.
func Supports(ext string) bool {
	_, ok := extractors[strings.ToLower(ext)]
	return ok
}

// Loader dispatches by extension and splits the extracted text.
type Loader struct {
	extractors   map[string]Extractor
	chunkSize    int
	chunkOverlap int
}

func New(chunkSize, chunkOverlap int) *Loader {
	return &Loader{
		extractors:   extractors,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Load extracts and chunks src. A file path wins over inline content; inline content is
// treated as plain text regardless of ext.
func (l *Loader) Load(ctx context.Context, src Source, ext string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var text string
	switch {
	case src.Path != "":
		if ext == "" {
			ext = filepath.Ext(src.Path)
		}
		extract, ok := l.extractors[strings.ToLower(ext)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
		}
		out, err := extract(src.Path)
		if err != nil {
			return nil, fmt.Errorf("extract %s failed: %w", filepath.Base(src.Path), err)
		}
		text = out
	default:
		text = src.Content
	}

	text = normalize(text)
	if text == "" {
		return nil, ErrNoText
	}
	return &Document{
		Text:   text,
		Chunks: Split(text, l.chunkSize, l.chunkOverlap),
	}, nil
}

func extractPlain(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// normalize unifies line endings and drops trailing spaces and runs of blank lines.
func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\x00", "")
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
