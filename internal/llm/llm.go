// Package llm defines the boundary between the extraction pipeline and the model providers.
package llm

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyPrompt is returned by generators when the request carries no prompt.
var ErrEmptyPrompt = errors.New("llm: prompt is empty")

// Document is a binary attachment (for example a resume PDF) passed by reference to the model.
type Document struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Source is the unstructured input of an extraction: either plain text or a document.
type Source struct {
	Text     string
	Document *Document
}

// TextSource wraps plain text as a Source.
func TextSource(text string) Source {
	return Source{Text: text}
}

// DocumentSource wraps a document as a Source.
func DocumentSource(doc *Document) Source {
	return Source{Document: doc}
}

// IsEmpty reports whether the source has neither text nor document bytes.
func (s Source) IsEmpty() bool {
	if s.Document != nil {
		return len(s.Document.Data) == 0
	}

	return strings.TrimSpace(s.Text) == ""
}

// Request is one generation call.
type Request struct {
	Prompt   string
	Document *Document
}

// Generator asks a generative model for a JSON object and returns the raw content.
// An empty string with a nil error means the model replied with no content.
type Generator interface {
	GenerateJSON(ctx context.Context, req Request) (string, error)
}

// Embedder turns text into a vector.
type Embedder interface {
	CreateEmbedding(ctx context.Context, input string) ([]float32, error)
}

// DetectMIMEType returns the MIME type for a document file name, defaulting to PDF.
func DetectMIMEType(name string) string {
	lower := strings.ToLower(name)

	switch {
	case strings.HasSuffix(lower, ".docx"):
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case strings.HasSuffix(lower, ".txt"):
		return "text/plain"
	default:
		return "application/pdf"
	}
}
