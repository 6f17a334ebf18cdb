package transformer

import (
	"math"
	"math/rand"

	"github.com/alignlab/styletrain/internal/tensor"
)

// maskFill is the additive logit for masked-out (padding) positions
const maskFill = -1e9

// Attention is multi-head self-attention over a single sequence
type Attention struct {
	wq *tensor.Tensor // [model_dim, model_dim]
	wk *tensor.Tensor
	wv *tensor.Tensor
	wo *tensor.Tensor

	numHeads int
	headDim  int
}

// NewAttention creates a randomly initialized attention layer
func NewAttention(cfg Config, rng *rand.Rand) *Attention {
	dim := cfg.ModelDim
	return &Attention{
		wq:       tensor.NewRandom([]int{dim, dim}, initScale, rng),
		wk:       tensor.NewRandom([]int{dim, dim}, initScale, rng),
		wv:       tensor.NewRandom([]int{dim, dim}, initScale, rng),
		wo:       tensor.NewRandom([]int{dim, dim}, initScale, rng),
		numHeads: cfg.NumHeads,
		headDim:  cfg.HeadDim(),
	}
}

// AttnCache holds forward activations for the backward pass
type AttnCache struct {
	x       *tensor.Tensor
	q, k, v *tensor.Tensor
	ctx     *tensor.Tensor   // concatenated head outputs, pre-wo
	probs   []*tensor.Tensor // per-head attention weights [seq, seq]
}

// Forward computes self-attention for x ([seq, dim]). The attention mask
// marks valid (non-pad) key positions; masked keys receive a large negative
// additive logit before the softmax.
func (a *Attention) Forward(x *tensor.Tensor, mask []int) (*tensor.Tensor, *AttnCache) {
	seq := x.Shape()[0]

	q := tensor.MatMul(x, a.wq)
	k := tensor.MatMul(x, a.wk)
	v := tensor.MatMul(x, a.wv)

	ctx := tensor.NewTensor([]int{seq, a.numHeads * a.headDim})
	probs := make([]*tensor.Tensor, a.numHeads)
	scale := float32(1 / math.Sqrt(float64(a.headDim)))

	for h := 0; h < a.numHeads; h++ {
		qh := extractHead(q, h, a.headDim)
		kh := extractHead(k, h, a.headDim)
		vh := extractHead(v, h, a.headDim)

		scores := tensor.MatMulTransposeB(qh, kh)
		sData := scores.Data()
		for i := 0; i < seq; i++ {
			row := sData[i*seq : (i+1)*seq]
			for j := range row {
				row[j] *= scale
				if mask != nil && j < len(mask) && mask[j] == 0 {
					row[j] += maskFill
				}
			}
		}

		p := tensor.SoftmaxRows(scores)
		probs[h] = p

		writeHead(ctx, tensor.MatMul(p, vh), h, a.headDim)
	}

	out := tensor.MatMul(ctx, a.wo)

	return out, &AttnCache{x: x, q: q, k: k, v: v, ctx: ctx, probs: probs}
}

// Backward propagates grad ([seq, dim]) through the attention layer,
// accumulating weight gradients, and returns the gradient w.r.t. x
func (a *Attention) Backward(grad *tensor.Tensor, cache *AttnCache) *tensor.Tensor {
	seq := grad.Shape()[0]
	dim := a.numHeads * a.headDim
	scale := float32(1 / math.Sqrt(float64(a.headDim)))

	// Output projection
	tensor.AddInPlace(gradTensor(a.wo), tensor.MatMulTransposeA(cache.ctx, grad))
	dCtx := tensor.MatMulTransposeB(grad, a.wo)

	dq := tensor.NewTensor([]int{seq, dim})
	dk := tensor.NewTensor([]int{seq, dim})
	dv := tensor.NewTensor([]int{seq, dim})

	for h := 0; h < a.numHeads; h++ {
		qh := extractHead(cache.q, h, a.headDim)
		kh := extractHead(cache.k, h, a.headDim)
		vh := extractHead(cache.v, h, a.headDim)
		p := cache.probs[h]

		dCtxh := extractHead(dCtx, h, a.headDim)

		dProbs := tensor.MatMulTransposeB(dCtxh, vh)
		dVh := tensor.MatMulTransposeA(p, dCtxh)

		// Softmax backward: ds = p * (dp - sum(dp * p)) per row
		dScores := tensor.NewTensor([]int{seq, seq})
		pData := p.Data()
		dpData := dProbs.Data()
		dsData := dScores.Data()
		for i := 0; i < seq; i++ {
			pRow := pData[i*seq : (i+1)*seq]
			dpRow := dpData[i*seq : (i+1)*seq]
			var dot float32
			for j := range pRow {
				dot += pRow[j] * dpRow[j]
			}
			dsRow := dsData[i*seq : (i+1)*seq]
			for j := range pRow {
				dsRow[j] = pRow[j] * (dpRow[j] - dot) * scale
			}
		}

		dQh := tensor.MatMul(dScores, kh)
		dKh := tensor.MatMulTransposeA(dScores, qh)

		writeHead(dq, dQh, h, a.headDim)
		writeHead(dk, dKh, h, a.headDim)
		writeHead(dv, dVh, h, a.headDim)
	}

	// Projection weights and input gradient
	tensor.AddInPlace(gradTensor(a.wq), tensor.MatMulTransposeA(cache.x, dq))
	tensor.AddInPlace(gradTensor(a.wk), tensor.MatMulTransposeA(cache.x, dk))
	tensor.AddInPlace(gradTensor(a.wv), tensor.MatMulTransposeA(cache.x, dv))

	dx := tensor.MatMulTransposeB(dq, a.wq)
	tensor.AddInPlace(dx, tensor.MatMulTransposeB(dk, a.wk))
	tensor.AddInPlace(dx, tensor.MatMulTransposeB(dv, a.wv))

	return dx
}

// Parameters returns the trainable tensors
func (a *Attention) Parameters() []*tensor.Tensor {
	return []*tensor.Tensor{a.wq, a.wk, a.wv, a.wo}
}

// extractHead copies head h's columns out of a [seq, dim] tensor into a
// [seq, head_dim] tensor
func extractHead(t *tensor.Tensor, h, headDim int) *tensor.Tensor {
	seq, dim := t.Shape()[0], t.Shape()[1]
	out := tensor.NewTensor([]int{seq, headDim})

	src := t.Data()
	dst := out.Data()
	offset := h * headDim
	for i := 0; i < seq; i++ {
		copy(dst[i*headDim:(i+1)*headDim], src[i*dim+offset:i*dim+offset+headDim])
	}
	return out
}

// writeHead copies a [seq, head_dim] tensor into head h's columns of a
// [seq, dim] tensor
func writeHead(dst *tensor.Tensor, head *tensor.Tensor, h, headDim int) {
	seq, dim := dst.Shape()[0], dst.Shape()[1]
	d := dst.Data()
	s := head.Data()
	offset := h * headDim
	for i := 0; i < seq; i++ {
		copy(d[i*dim+offset:i*dim+offset+headDim], s[i*headDim:(i+1)*headDim])
	}
}

// gradTensor wraps a parameter's gradient buffer as a tensor of the same
// shape so AddInPlace can accumulate into it
func gradTensor(p *tensor.Tensor) *tensor.Tensor {
	return tensor.NewTensorFromData(p.Grad(), p.Shape())
}
