package transformer

import (
	"math/rand"

	"github.com/alignlab/styletrain/internal/tensor"
)

// FeedForward is the position-wise two-layer MLP with a ReLU between
type FeedForward struct {
	w1 *tensor.Tensor // [model_dim, hidden_dim]
	b1 *tensor.Tensor // [hidden_dim]
	w2 *tensor.Tensor // [hidden_dim, model_dim]
	b2 *tensor.Tensor // [model_dim]
}

// NewFeedForward creates a randomly initialized feed-forward layer
func NewFeedForward(inDim, hiddenDim, outDim int, rng *rand.Rand) *FeedForward {
	return &FeedForward{
		w1: tensor.NewRandom([]int{inDim, hiddenDim}, initScale, rng),
		b1: tensor.NewTensor([]int{hiddenDim}),
		w2: tensor.NewRandom([]int{hiddenDim, outDim}, initScale, rng),
		b2: tensor.NewTensor([]int{outDim}),
	}
}

// FFCache holds forward activations for the backward pass
type FFCache struct {
	x   *tensor.Tensor // input [seq, in]
	pre *tensor.Tensor // first linear output before ReLU [seq, hidden]
}

// Forward applies w2(relu(w1 x + b1)) + b2 to x ([seq, in])
func (ff *FeedForward) Forward(x *tensor.Tensor) (*tensor.Tensor, *FFCache) {
	pre := tensor.MatMul(x, ff.w1)
	addBiasRows(pre, ff.b1)

	hidden := tensor.ReLU(pre)

	out := tensor.MatMul(hidden, ff.w2)
	addBiasRows(out, ff.b2)

	return out, &FFCache{x: x, pre: pre}
}

// Backward propagates grad through the MLP, accumulating weight and bias
// gradients, and returns the gradient w.r.t. x
func (ff *FeedForward) Backward(grad *tensor.Tensor, cache *FFCache) *tensor.Tensor {
	hidden := tensor.ReLU(cache.pre)

	tensor.AddInPlace(gradTensor(ff.w2), tensor.MatMulTransposeA(hidden, grad))
	accumBiasGrad(ff.b2, grad)

	dHidden := tensor.MatMulTransposeB(grad, ff.w2)
	dPre := tensor.ReLUBackward(dHidden, cache.pre)

	tensor.AddInPlace(gradTensor(ff.w1), tensor.MatMulTransposeA(cache.x, dPre))
	accumBiasGrad(ff.b1, dPre)

	return tensor.MatMulTransposeB(dPre, ff.w1)
}

// Parameters returns the trainable tensors
func (ff *FeedForward) Parameters() []*tensor.Tensor {
	return []*tensor.Tensor{ff.w1, ff.b1, ff.w2, ff.b2}
}

// addBiasRows adds a bias vector to every row of a 2D tensor in place
func addBiasRows(t *tensor.Tensor, bias *tensor.Tensor) {
	rows, cols := t.Shape()[0], t.Shape()[1]
	data := t.Data()
	b := bias.Data()
	for i := 0; i < rows; i++ {
		row := data[i*cols : (i+1)*cols]
		for j := range row {
			row[j] += b[j]
		}
	}
}

// accumBiasGrad accumulates column sums of grad into the bias gradient
func accumBiasGrad(bias *tensor.Tensor, grad *tensor.Tensor) {
	rows, cols := grad.Shape()[0], grad.Shape()[1]
	g := bias.Grad()
	data := grad.Data()
	for i := 0; i < rows; i++ {
		row := data[i*cols : (i+1)*cols]
		for j := range row {
			g[j] += row[j]
		}
	}
}
