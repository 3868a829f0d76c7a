package domain

import "fmt"

// Document is one scraped source page.
type Document struct {
	Identifier string `json:"filePath"`
	Text       string `json:"text"`
}

// TokenizedDocument carries a document with its precomputed token count
type TokenizedDocument struct {
	Document
	TokenCount int `json:"tokenCount"`
}

// NewDocument creates a new Document instance
func NewDocument(identifier, text string) *Document {
	return &Document{
		Identifier: identifier,
		Text:       text,
	}
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.Identifier == "" {
		return fmt.Errorf("document Identifier is required")
	}

	return nil
}
