package transformer

import (
	"math/rand"

	"github.com/alignlab/styletrain/internal/tensor"
)

// Enhancer is a residual refinement applied to the final hidden states
// before the output heads. It is the model's single deviation from a
// vanilla transformer LM and the primary place to experiment, so it is kept
// behind an interface and swappable at construction.
type Enhancer interface {
	Forward(x *tensor.Tensor) (*tensor.Tensor, *FFCache)
	Backward(grad *tensor.Tensor, cache *FFCache) *tensor.Tensor
	Parameters() []*tensor.Tensor
}

// CodeEnhancer biases the final representations toward code-structure cues
// with a bottlenecked feed-forward refinement, added back residually by the
// model
type CodeEnhancer struct {
	ff *FeedForward
}

// NewCodeEnhancer creates the default code-understanding enhancer
func NewCodeEnhancer(cfg Config, rng *rand.Rand) *CodeEnhancer {
	return &CodeEnhancer{
		ff: NewFeedForward(cfg.ModelDim, cfg.HiddenDim, cfg.ModelDim, rng),
	}
}

// Forward computes the refinement term for x ([seq, dim]). The caller adds
// it back to x.
func (ce *CodeEnhancer) Forward(x *tensor.Tensor) (*tensor.Tensor, *FFCache) {
	return ce.ff.Forward(x)
}

// Backward propagates the refinement gradient and returns the gradient
// w.r.t. x through the enhancer path only
func (ce *CodeEnhancer) Backward(grad *tensor.Tensor, cache *FFCache) *tensor.Tensor {
	return ce.ff.Backward(grad, cache)
}

// Parameters returns the trainable tensors
func (ce *CodeEnhancer) Parameters() []*tensor.Tensor {
	return ce.ff.Parameters()
}
