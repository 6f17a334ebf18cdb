package tokenizer

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Reserved token IDs. These are fixed for every vocabulary this engine
// builds or loads; batch padding and generation termination depend on them.
const (
	PadID   = 0
	UnkID   = 1
	StartID = 2
	EndID   = 3
)

var reservedTokens = []string{"<pad>", "<unk>", "<start>", "<end>"}

// Common programming keywords that are always part of the vocabulary,
// ahead of corpus-derived tokens. The model's target domain is assistant
// replies about code, so these carry a lot of signal even in tiny corpora.
var keywordTokens = []string{
	"def", "class", "import", "from", "return", "if", "else",
	"for", "while", "try", "except", "with", "as", "lambda",
	"async", "await", "yield", "raise", "assert", "pass",
	"func", "var", "const", "type", "struct", "interface", "go",
}

// Vocabulary is an ordered, immutable mapping between token strings and
// integer IDs. Construct once, then share freely across readers.
type Vocabulary struct {
	tokens []string
	ids    map[string]int
}

// NewVocabulary builds a vocabulary from an ordered token list. The first
// four tokens must be the reserved specials.
func NewVocabulary(tokens []string) (*Vocabulary, error) {
	if len(tokens) < len(reservedTokens) {
		return nil, fmt.Errorf("vocabulary too small: %d tokens", len(tokens))
	}
	for i, want := range reservedTokens {
		if tokens[i] != want {
			return nil, fmt.Errorf("token %d must be %q, got %q", i, want, tokens[i])
		}
	}

	ids := make(map[string]int, len(tokens))
	for id, tok := range tokens {
		if _, dup := ids[tok]; dup {
			return nil, fmt.Errorf("duplicate token %q", tok)
		}
		ids[tok] = id
	}

	return &Vocabulary{tokens: tokens, ids: ids}, nil
}

// BuildVocabulary derives a vocabulary of at most size tokens from the
// given texts: reserved specials, then programming keywords, then corpus
// tokens by descending frequency (ties broken lexically for determinism).
func BuildVocabulary(texts []string, size int) (*Vocabulary, error) {
	if size < len(reservedTokens)+len(keywordTokens) {
		return nil, fmt.Errorf("vocab size %d too small for reserved tokens", size)
	}

	tokens := make([]string, 0, size)
	tokens = append(tokens, reservedTokens...)

	seen := make(map[string]bool, size)
	for _, tok := range tokens {
		seen[tok] = true
	}
	for _, kw := range keywordTokens {
		if !seen[kw] {
			tokens = append(tokens, kw)
			seen[kw] = true
		}
	}

	freq := make(map[string]int)
	for _, text := range texts {
		for _, tok := range splitTokens(text) {
			if !seen[tok] {
				freq[tok]++
			}
		}
	}

	ranked := make([]string, 0, len(freq))
	for tok := range freq {
		ranked = append(ranked, tok)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if freq[ranked[i]] != freq[ranked[j]] {
			return freq[ranked[i]] > freq[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	for _, tok := range ranked {
		if len(tokens) >= size {
			break
		}
		tokens = append(tokens, tok)
	}

	return NewVocabulary(tokens)
}

// Size returns the number of tokens in the vocabulary
func (v *Vocabulary) Size() int {
	return len(v.tokens)
}

// TokenToID converts a token string to its ID.
// Returns UnkID if the token is not in the vocabulary.
func (v *Vocabulary) TokenToID(token string) int {
	if id, ok := v.ids[token]; ok {
		return id
	}
	return UnkID
}

// IDToToken converts a token ID to its string.
// Returns the unknown-token string for out-of-range IDs.
func (v *Vocabulary) IDToToken(id int) string {
	if id >= 0 && id < len(v.tokens) {
		return v.tokens[id]
	}
	return v.tokens[UnkID]
}

// Contains reports whether the token is in the vocabulary
func (v *Vocabulary) Contains(token string) bool {
	_, ok := v.ids[token]
	return ok
}

// Save writes the ordered token list as JSON so a run's tokenizer is
// reproducible at resume
func (v *Vocabulary) Save(path string) error {
	data, err := json.Marshal(v.tokens)
	if err != nil {
		return fmt.Errorf("marshaling vocabulary: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing vocabulary: %w", err)
	}
	return nil
}

// LoadVocabulary reads a vocabulary saved by Save
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading vocabulary: %w", err)
	}

	var tokens []string
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("parsing vocabulary: %w", err)
	}

	return NewVocabulary(tokens)
}

// splitTokens lowercases and splits on whitespace
func splitTokens(text string) []string {
	return strings.Fields(strings.ToLower(text))
}
