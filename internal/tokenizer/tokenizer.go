// Package tokenizer maps between raw text and the fixed integer vocabulary
// used by the model. Tokenization is whitespace-based: replies are scored on
// structure and wording, not on subword fidelity, so a word-level scheme
// keeps the pipeline simple and the vocabulary interpretable.
package tokenizer

import "strings"

// Tokenizer converts text to token IDs and back. It is read-only after
// construction and safe for concurrent use.
type Tokenizer struct {
	vocab *Vocabulary
}

// New creates a tokenizer over the given vocabulary
func New(vocab *Vocabulary) *Tokenizer {
	return &Tokenizer{vocab: vocab}
}

// Vocab returns the underlying vocabulary
func (t *Tokenizer) Vocab() *Vocabulary {
	return t.vocab
}

// Encode converts text into a sequence of token IDs. Out-of-vocabulary
// tokens map to the unknown ID. Never fails; empty input yields an empty
// sequence.
func (t *Tokenizer) Encode(text string) []int {
	words := splitTokens(text)
	ids := make([]int, len(words))
	for i, w := range words {
		ids[i] = t.vocab.TokenToID(w)
	}
	return ids
}

// Decode converts token IDs back into text. Padding IDs are dropped;
// out-of-range IDs render as the unknown-token string.
func (t *Tokenizer) Decode(ids []int) string {
	words := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == PadID {
			continue
		}
		words = append(words, t.vocab.IDToToken(id))
	}
	return strings.Join(words, " ")
}
