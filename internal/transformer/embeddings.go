package transformer

import (
	"math/rand"

	"github.com/alignlab/styletrain/internal/tensor"
)

// Embeddings sums a token embedding and a learned positional embedding
type Embeddings struct {
	tokens    *tensor.Tensor // [vocab_size, model_dim]
	positions *tensor.Tensor // [max_seq_length, model_dim]
}

// NewEmbeddings creates randomly initialized embedding tables
func NewEmbeddings(cfg Config, rng *rand.Rand) *Embeddings {
	return &Embeddings{
		tokens:    tensor.NewRandom([]int{cfg.VocabSize, cfg.ModelDim}, initScale, rng),
		positions: tensor.NewRandom([]int{cfg.MaxSeqLength, cfg.ModelDim}, initScale, rng),
	}
}

// Forward embeds a token sequence: out[i] = tokens[ids[i]] + positions[i].
// Output shape [seq_len, model_dim].
func (e *Embeddings) Forward(ids []int) *tensor.Tensor {
	dim := e.tokens.Shape()[1]
	out := tensor.NewTensor([]int{len(ids), dim})

	tokData := e.tokens.Data()
	posData := e.positions.Data()
	outData := out.Data()

	for i, id := range ids {
		tokRow := tokData[id*dim : (id+1)*dim]
		posRow := posData[i*dim : (i+1)*dim]
		dst := outData[i*dim : (i+1)*dim]
		for j := range dst {
			dst[j] = tokRow[j] + posRow[j]
		}
	}

	return out
}

// Backward scatters the hidden-state gradient into both embedding tables.
// Repeated token IDs accumulate.
func (e *Embeddings) Backward(grad *tensor.Tensor, ids []int) {
	dim := e.tokens.Shape()[1]
	tokGrad := e.tokens.Grad()
	posGrad := e.positions.Grad()
	gradData := grad.Data()

	for i, id := range ids {
		src := gradData[i*dim : (i+1)*dim]
		tokRow := tokGrad[id*dim : (id+1)*dim]
		posRow := posGrad[i*dim : (i+1)*dim]
		for j, g := range src {
			tokRow[j] += g
			posRow[j] += g
		}
	}
}

// Parameters returns the trainable tensors
func (e *Embeddings) Parameters() []*tensor.Tensor {
	return []*tensor.Tensor{e.tokens, e.positions}
}
