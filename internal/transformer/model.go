// Package transformer implements the sequence model: embeddings, a stack of
// identical attention blocks, a code-understanding residual enhancer, and
// two output heads (next-token logits and multi-label tool logits). Every
// layer carries an analytic backward pass; forward passes record the
// activation caches the backward passes consume.
package transformer

import (
	"fmt"
	"math/rand"

	"github.com/alignlab/styletrain/internal/tensor"
)

// initScale is the standard deviation for weight initialization
const initScale = 0.02

// Model is the trainable style-alignment language model
type Model struct {
	config Config

	embeddings *Embeddings
	blocks     []*Block
	enhancer   Enhancer
	lmHead     *tensor.Tensor // [model_dim, vocab_size]
	lmBias     *tensor.Tensor // [vocab_size]
	toolHead   *FeedForward   // pooled [1, model_dim] -> [1, NumTools]
}

// NewModel creates a randomly initialized model. The seed fixes the
// initialization so runs are reproducible.
func NewModel(cfg Config, seed int64) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model config: %w", err)
	}

	rng := rand.New(rand.NewSource(seed))

	blocks := make([]*Block, cfg.NumLayers)
	for i := range blocks {
		blocks[i] = NewBlock(cfg, rng)
	}

	return &Model{
		config:     cfg,
		embeddings: NewEmbeddings(cfg, rng),
		blocks:     blocks,
		enhancer:   NewCodeEnhancer(cfg, rng),
		lmHead:     tensor.NewRandom([]int{cfg.ModelDim, cfg.VocabSize}, initScale, rng),
		lmBias:     tensor.NewTensor([]int{cfg.VocabSize}),
		toolHead:   NewFeedForward(cfg.ModelDim, cfg.HiddenDim, cfg.ToolSlots(), rng),
	}, nil
}

// Config returns the model configuration
func (m *Model) Config() Config {
	return m.config
}

// SetEnhancer swaps the residual enhancement block. Intended for
// experimentation; the default is the code-understanding enhancer.
func (m *Model) SetEnhancer(e Enhancer) {
	m.enhancer = e
}

// Cache holds all forward activations of one sequence, consumed by Backward
type Cache struct {
	ids    []int
	blocks []*BlockCache
	enh    *FFCache
	hidden *tensor.Tensor // final hidden states after the enhancer residual
	pooled *tensor.Tensor // first-position hidden state [1, dim]
	tool   *FFCache
}

// Forward runs one token sequence through the model and returns next-token
// logits ([seq, vocab]), tool logits ([1, NumTools]) and the activation
// cache.
//
// A sequence longer than max_seq_length is a caller contract violation and
// returns an error; the model does not truncate.
func (m *Model) Forward(ids []int, mask []int) (*tensor.Tensor, *tensor.Tensor, *Cache, error) {
	if len(ids) == 0 {
		return nil, nil, nil, fmt.Errorf("empty token sequence")
	}
	if len(ids) > m.config.MaxSeqLength {
		return nil, nil, nil, fmt.Errorf("sequence length %d exceeds max_seq_length %d", len(ids), m.config.MaxSeqLength)
	}
	for _, id := range ids {
		if id < 0 || id >= m.config.VocabSize {
			return nil, nil, nil, fmt.Errorf("token id %d outside vocabulary of size %d", id, m.config.VocabSize)
		}
	}

	cache := &Cache{ids: ids, blocks: make([]*BlockCache, len(m.blocks))}

	hidden := m.embeddings.Forward(ids)

	for i, block := range m.blocks {
		hidden, cache.blocks[i] = block.Forward(hidden, mask)
	}

	// Residual code-understanding refinement on the final hidden states
	enhOut, enhCache := m.enhancer.Forward(hidden)
	cache.enh = enhCache
	hidden = tensor.Add(hidden, enhOut)
	cache.hidden = hidden

	logits := tensor.MatMul(hidden, m.lmHead)
	addBiasRows(logits, m.lmBias)

	// Tool head pools the first position
	pooled := tensor.NewTensorFromData(hidden.Row(0), []int{1, m.config.ModelDim})
	cache.pooled = pooled
	toolLogits, toolCache := m.toolHead.Forward(pooled)
	cache.tool = toolCache

	return logits, toolLogits, cache, nil
}

// Backward propagates the logit gradients ([seq, vocab] and [1, NumTools])
// through the whole model, accumulating parameter gradients
func (m *Model) Backward(dLogits, dTool *tensor.Tensor, cache *Cache) {
	// LM head
	tensor.AddInPlace(gradTensor(m.lmHead), tensor.MatMulTransposeA(cache.hidden, dLogits))
	accumBiasGrad(m.lmBias, dLogits)
	dHidden := tensor.MatMulTransposeB(dLogits, m.lmHead)

	// Tool head feeds back into the first position only
	dPooled := m.toolHead.Backward(dTool, cache.tool)
	dHiddenData := dHidden.Data()
	for j, g := range dPooled.Data() {
		dHiddenData[j] += g
	}

	// Enhancer residual: hidden = pre + enhancer(pre)
	dPre := m.enhancer.Backward(dHidden, cache.enh)
	tensor.AddInPlace(dPre, dHidden)

	for i := len(m.blocks) - 1; i >= 0; i-- {
		dPre = m.blocks[i].Backward(dPre, cache.blocks[i])
	}

	m.embeddings.Backward(dPre, cache.ids)
}

// Parameters returns every trainable tensor in a stable order. Checkpoint
// serialization and the optimizer state both rely on this order.
func (m *Model) Parameters() []*tensor.Tensor {
	var params []*tensor.Tensor
	params = append(params, m.embeddings.Parameters()...)
	for _, block := range m.blocks {
		params = append(params, block.Parameters()...)
	}
	params = append(params, m.enhancer.Parameters()...)
	params = append(params, m.lmHead, m.lmBias)
	params = append(params, m.toolHead.Parameters()...)
	return params
}

// NumParameters returns the total trainable parameter count
func (m *Model) NumParameters() int {
	total := 0
	for _, p := range m.Parameters() {
		total += p.Size()
	}
	return total
}

// ZeroGrad clears all parameter gradients
func (m *Model) ZeroGrad() {
	for _, p := range m.Parameters() {
		p.ZeroGrad()
	}
}
