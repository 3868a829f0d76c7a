// Package tokenizer wraps the cl100k_base BPE encoding used to size chunks.
package tokenizer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

const (
	// DefaultEncoding is the encoding used by text-embedding-ada-002
	DefaultEncoding = "cl100k_base"
)

// Tokenizer counts and encodes text. Implementations must be deterministic.
type Tokenizer interface {
	Count(text string) int
	Encode(text string) []int
}

var loaderOnce sync.Once

// Tiktoken is a Tokenizer backed by a tiktoken BPE encoding.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// New returns a Tiktoken for the default encoding.
func New() (*Tiktoken, error) {
	return NewWithEncoding(DefaultEncoding)
}

// NewWithEncoding returns a Tiktoken for the named encoding. Ranks are read
// from the embedded offline loader, never downloaded.
func NewWithEncoding(name string) (*Tiktoken, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})

	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding %s: %w", name, err)
	}

	return &Tiktoken{enc: enc}, nil
}

// Encode returns the token ids for text. Special-token markers are encoded as
// plain text.
func (t *Tiktoken) Encode(text string) []int {
	if text == "" {
		return []int{}
	}
	return t.enc.Encode(text, nil, nil)
}

// Count returns the number of tokens in text
func (t *Tiktoken) Count(text string) int {
	return len(t.Encode(text))
}
