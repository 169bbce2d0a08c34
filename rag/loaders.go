package rag

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

// StaticLoader loads documents from a static list.
type StaticLoader struct {
	Documents []Document
}

// NewStaticLoader creates a loader over the given documents.
func NewStaticLoader(documents []Document) *StaticLoader {
	return &StaticLoader{Documents: documents}
}

func (l *StaticLoader) Load(ctx context.Context) ([]Document, error) {
	return l.Documents, nil
}

// TextLoader loads a plain-text file as one document.
type TextLoader struct {
	Path string
}

// NewTextLoader creates a loader for a text file.
func NewTextLoader(path string) *TextLoader {
	return &TextLoader{Path: path}
}

func (l *TextLoader) Load(ctx context.Context) ([]Document, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", l.Path, err)
	}
	return []Document{{
		ID:      l.Path,
		Content: string(data),
		Metadata: map[string]any{
			"source": l.Path,
			"type":   "text",
		},
	}}, nil
}

// MarkdownLoader loads a markdown file, stripping markup so only the readable
// text is indexed.
type MarkdownLoader struct {
	Path string
}

// NewMarkdownLoader creates a loader for a markdown file.
func NewMarkdownLoader(path string) *MarkdownLoader {
	return &MarkdownLoader{Path: path}
}

func (l *MarkdownLoader) Load(ctx context.Context) ([]Document, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", l.Path, err)
	}

	text, err := markdownToText(data)
	if err != nil {
		return nil, err
	}

	return []Document{{
		ID:      l.Path,
		Content: text,
		Metadata: map[string]any{
			"source": l.Path,
			"type":   "markdown",
		},
	}}, nil
}

// markdownToText renders markdown to HTML and extracts the plain text.
func markdownToText(md []byte) (string, error) {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	rendered := markdown.ToHTML(md, p, renderer)
	return htmlToText(string(rendered))
}

// HTMLLoader loads an HTML file, extracting the readable text.
type HTMLLoader struct {
	Path string
}

// NewHTMLLoader creates a loader for an HTML file.
func NewHTMLLoader(path string) *HTMLLoader {
	return &HTMLLoader{Path: path}
}

func (l *HTMLLoader) Load(ctx context.Context) ([]Document, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", l.Path, err)
	}

	text, err := htmlToText(string(data))
	if err != nil {
		return nil, err
	}

	return []Document{{
		ID:      l.Path,
		Content: text,
		Metadata: map[string]any{
			"source": l.Path,
			"type":   "html",
		},
	}}, nil
}

func htmlToText(rendered string) (string, error) {
	sanitized := bluemonday.UGCPolicy().Sanitize(rendered)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sanitized))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	var parts []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, "\n"), nil
}
