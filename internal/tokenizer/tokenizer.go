// Package tokenizer counts model tokens for context budgeting.
package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktokenloader "github.com/pkoukk/tiktoken-go-loader"
)

// FallbackEncoding is used for models tiktoken does not know (local and Gemini models).
const FallbackEncoding = "cl100k_base"

// Tokenizer counts tokens the way the generation model will.
type Tokenizer interface {
	Count(text string) int
}

var loaderOnce sync.Once

// Tiktoken is a BPE tokenizer. BPE ranks are loaded from the embedded offline
// loader so startup never reaches the network.
type Tiktoken struct {
	enc      *tiktoken.Tiktoken
	encoding string
}

// ForModel returns the encoding tiktoken maps to model, or FallbackEncoding.
func ForModel(model string) (*Tiktoken, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktokenloader.NewOfflineLoader())
	})

	if enc, err := tiktoken.EncodingForModel(model); err == nil {
		return &Tiktoken{enc: enc, encoding: "model:" + model}, nil
	}
	enc, err := tiktoken.GetEncoding(FallbackEncoding)
	if err != nil {
		return nil, fmt.Errorf("load %s encoding: %w", FallbackEncoding, err)
	}
	return &Tiktoken{enc: enc, encoding: FallbackEncoding}, nil
}

// Count returns the number of tokens in text.
func (t *Tiktoken) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

// Encoding names the encoding in use, for logs.
func (t *Tiktoken) Encoding() string { return t.encoding }

// Whitespace counts whitespace-separated words. Used in tests and as a last resort.
type Whitespace struct{}

func (Whitespace) Count(text string) int { return len(strings.Fields(text)) }
