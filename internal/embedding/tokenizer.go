package embedding

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer encodes text to model tokens and back. The indirection
// keeps the BPE tables out of unit tests.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// TiktokenTokenizer wraps the model-specific tiktoken encoding.
type TiktokenTokenizer struct {
	encoding *tiktoken.Tiktoken
}

var _ Tokenizer = (*TiktokenTokenizer)(nil)

// NewTokenizerForModel returns the tokenizer matching the embedding
// model's own encoding.
func NewTokenizerForModel(model string) (*TiktokenTokenizer, error) {
	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer for model %s: %w", model, err)
	}
	return &TiktokenTokenizer{encoding: encoding}, nil
}

// Encode tokenizes text.
func (t *TiktokenTokenizer) Encode(text string) []int {
	return t.encoding.Encode(text, nil, nil)
}

// Decode reassembles text from tokens.
func (t *TiktokenTokenizer) Decode(tokens []int) string {
	return t.encoding.Decode(tokens)
}

// Truncate bounds text to maxTokens model tokens. Text at or under
// the ceiling is returned unchanged; longer text is cut at exactly
// maxTokens tokens and decoded back. The second return is the
// original token count.
func Truncate(tok Tokenizer, text string, maxTokens int) (string, int) {
	tokens := tok.Encode(text)
	if len(tokens) <= maxTokens {
		return text, len(tokens)
	}
	return tok.Decode(tokens[:maxTokens]), len(tokens)
}
