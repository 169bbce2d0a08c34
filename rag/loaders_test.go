package rag

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticLoader(t *testing.T) {
	loader := NewStaticLoader([]Document{
		{ID: "a", Content: "hello"},
		{ID: "b", Content: "world"},
	})

	docs, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "hello", docs[0].Content)
}

func TestTextLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("line one\nline two\n"), 0o644))

	loader := NewTextLoader(path)
	docs, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "line one\nline two\n", docs[0].Content)
	assert.Equal(t, path, docs[0].Metadata["source"])
}

func TestTextLoaderMissingFile(t *testing.T) {
	loader := NewTextLoader(filepath.Join(t.TempDir(), "missing.txt"))
	_, err := loader.Load(context.Background())
	assert.Error(t, err)
}

func TestMarkdownLoaderStripsFormatting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	content := "# Title\n\nSome **bold** text with a [link](https://example.com).\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	loader := NewMarkdownLoader(path)
	docs, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Content, "Title")
	assert.Contains(t, docs[0].Content, "bold")
	assert.NotContains(t, docs[0].Content, "**")
	assert.NotContains(t, docs[0].Content, "](")
}

func TestHTMLLoaderStripsTags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	content := "<html><body><h1>Welcome</h1><script>alert(1)</script><p>Plain text.</p></body></html>"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	loader := NewHTMLLoader(path)
	docs, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Content, "Welcome")
	assert.Contains(t, docs[0].Content, "Plain text.")
	assert.NotContains(t, docs[0].Content, "alert")
	assert.NotContains(t, docs[0].Content, "<p>")
}

func TestParagraphSplitter(t *testing.T) {
	splitter := NewParagraphSplitter(20)
	docs, err := splitter.Split([]Document{{
		ID:      "doc",
		Content: "first paragraph here\n\nsecond paragraph here\n\nshort",
	}})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "doc#0", docs[0].ID)
	assert.Equal(t, "first paragraph here", docs[0].Content)
	assert.Contains(t, docs[1].Content, "second paragraph here")
	assert.Contains(t, docs[1].Content, "short")
}

func TestParagraphSplitterKeepsMetadata(t *testing.T) {
	splitter := NewParagraphSplitter(1000)
	docs, err := splitter.Split([]Document{{
		ID:       "doc",
		Content:  "one paragraph",
		Metadata: map[string]any{"source": "notes.txt"},
	}})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "notes.txt", docs[0].Metadata["source"])
}
