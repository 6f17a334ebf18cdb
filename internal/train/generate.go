package train

import (
	"github.com/alignlab/styletrain/internal/tensor"
	"github.com/alignlab/styletrain/internal/tokenizer"
	"github.com/alignlab/styletrain/internal/transformer"
)

// Generator produces text by greedy autoregressive decoding. Each Generate
// call is independent and restartable; the decode loop has exactly two exit
// conditions: the hard token cap and the end-of-sequence token.
type Generator struct {
	model     *transformer.Model
	tok       *tokenizer.Tokenizer
	maxTokens int
}

// NewGenerator creates a greedy decoder with a hard cap on generated tokens
func NewGenerator(model *transformer.Model, tok *tokenizer.Tokenizer, maxTokens int) *Generator {
	return &Generator{model: model, tok: tok, maxTokens: maxTokens}
}

// Generate greedily decodes a continuation for the prompt and returns the
// decoded generated text (the prompt itself is not included)
func (g *Generator) Generate(prompt string) (string, error) {
	ids := g.tok.Encode(prompt)
	if len(ids) == 0 {
		ids = []int{tokenizer.StartID}
	}

	maxSeq := g.model.Config().MaxSeqLength
	if len(ids) > maxSeq {
		// Keep the tail of an overlong prompt; the window is the model's
		// hard context limit.
		ids = ids[len(ids)-maxSeq:]
	}

	generated := make([]int, 0, g.maxTokens)

	for step := 0; step < g.maxTokens; step++ {
		if len(ids) >= maxSeq {
			ids = ids[len(ids)-maxSeq+1:]
		}

		mask := make([]int, len(ids))
		for i := range mask {
			mask[i] = 1
		}

		logits, _, _, err := g.model.Forward(ids, mask)
		if err != nil {
			return "", err
		}

		seq := logits.Shape()[0]
		last := tensor.NewTensorFromData(logits.Row(seq-1), []int{logits.Shape()[1]})
		next := tensor.Argmax(last)

		if next == tokenizer.EndID {
			break
		}

		generated = append(generated, next)
		ids = append(ids, next)
	}

	return g.tok.Decode(generated), nil
}
