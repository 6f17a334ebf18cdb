package transformer

import (
	"math/rand"

	"github.com/alignlab/styletrain/internal/tensor"
)

// Block is one transformer layer: self-attention with residual and layer
// norm, then a position-wise feed-forward with residual and layer norm
type Block struct {
	attn  *Attention
	norm1 *LayerNorm
	ff    *FeedForward
	norm2 *LayerNorm
}

// NewBlock creates a randomly initialized transformer block
func NewBlock(cfg Config, rng *rand.Rand) *Block {
	return &Block{
		attn:  NewAttention(cfg, rng),
		norm1: NewLayerNorm(cfg.ModelDim),
		ff:    NewFeedForward(cfg.ModelDim, cfg.HiddenDim, cfg.ModelDim, rng),
		norm2: NewLayerNorm(cfg.ModelDim),
	}
}

// BlockCache holds the forward activations of one block
type BlockCache struct {
	attn  *AttnCache
	norm1 *NormCache
	ff    *FFCache
	norm2 *NormCache
}

// Forward runs x ([seq, dim]) through the block
func (b *Block) Forward(x *tensor.Tensor, mask []int) (*tensor.Tensor, *BlockCache) {
	cache := &BlockCache{}

	attnOut, attnCache := b.attn.Forward(x, mask)
	cache.attn = attnCache

	res1 := tensor.Add(x, attnOut)
	normed1, normCache1 := b.norm1.Forward(res1)
	cache.norm1 = normCache1

	ffOut, ffCache := b.ff.Forward(normed1)
	cache.ff = ffCache

	res2 := tensor.Add(normed1, ffOut)
	out, normCache2 := b.norm2.Forward(res2)
	cache.norm2 = normCache2

	return out, cache
}

// Backward propagates grad through the block in reverse order and returns
// the gradient w.r.t. the block input
func (b *Block) Backward(grad *tensor.Tensor, cache *BlockCache) *tensor.Tensor {
	dRes2 := b.norm2.Backward(grad, cache.norm2)

	// res2 = normed1 + ff(normed1): both paths receive dRes2
	dNormed1 := b.ff.Backward(dRes2, cache.ff)
	tensor.AddInPlace(dNormed1, dRes2)

	dRes1 := b.norm1.Backward(dNormed1, cache.norm1)

	// res1 = x + attn(x)
	dx := b.attn.Backward(dRes1, cache.attn)
	tensor.AddInPlace(dx, dRes1)

	return dx
}

// Parameters returns the trainable tensors of the block
func (b *Block) Parameters() []*tensor.Tensor {
	var params []*tensor.Tensor
	params = append(params, b.attn.Parameters()...)
	params = append(params, b.norm1.Parameters()...)
	params = append(params, b.ff.Parameters()...)
	params = append(params, b.norm2.Parameters()...)
	return params
}
