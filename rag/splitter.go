package rag

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// ParagraphSplitter splits documents on blank lines, merging paragraphs up to
// ChunkSize characters.
type ParagraphSplitter struct {
	// ChunkSize caps a chunk's length in characters. Default 1000.
	ChunkSize int
}

// NewParagraphSplitter creates a splitter with the given chunk size.
func NewParagraphSplitter(chunkSize int) *ParagraphSplitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	return &ParagraphSplitter{ChunkSize: chunkSize}
}

func (s *ParagraphSplitter) Split(docs []Document) ([]Document, error) {
	var out []Document
	for _, doc := range docs {
		for i, chunk := range s.splitText(doc.Content) {
			out = append(out, Document{
				ID:       fmt.Sprintf("%s#%d", doc.ID, i),
				Content:  chunk,
				Metadata: doc.Metadata,
			})
		}
	}
	return out, nil
}

func (s *ParagraphSplitter) splitText(text string) []string {
	var chunks []string
	var current strings.Builder

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+len(para) > s.ChunkSize {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// LangChainSplitter adapts a langchaingo textsplitter.TextSplitter.
type LangChainSplitter struct {
	splitter textsplitter.TextSplitter
}

// NewLangChainSplitter wraps a langchaingo text splitter, e.g.
// textsplitter.NewRecursiveCharacter().
func NewLangChainSplitter(splitter textsplitter.TextSplitter) *LangChainSplitter {
	return &LangChainSplitter{splitter: splitter}
}

func (s *LangChainSplitter) Split(docs []Document) ([]Document, error) {
	var out []Document
	for _, doc := range docs {
		chunks, err := s.splitter.SplitText(doc.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to split document %s: %w", doc.ID, err)
		}
		for i, chunk := range chunks {
			out = append(out, Document{
				ID:       fmt.Sprintf("%s#%d", doc.ID, i),
				Content:  chunk,
				Metadata: doc.Metadata,
			})
		}
	}
	return out, nil
}
