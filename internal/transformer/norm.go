package transformer

import (
	"math"

	"github.com/alignlab/styletrain/internal/tensor"
)

const normEps = 1e-5

// LayerNorm normalizes each position over the feature dimension and applies
// a learned scale and shift
type LayerNorm struct {
	gamma *tensor.Tensor // [model_dim]
	beta  *tensor.Tensor // [model_dim]
}

// NewLayerNorm creates a layer norm with identity initialization
func NewLayerNorm(dim int) *LayerNorm {
	gamma := tensor.NewTensor([]int{dim})
	for i := range gamma.Data() {
		gamma.Data()[i] = 1
	}
	return &LayerNorm{
		gamma: gamma,
		beta:  tensor.NewTensor([]int{dim}),
	}
}

// NormCache holds the forward activations needed by Backward
type NormCache struct {
	normed *tensor.Tensor // x-hat, [seq, dim]
	invStd []float32      // per position
}

// Forward normalizes x ([seq, dim]) row-wise
func (ln *LayerNorm) Forward(x *tensor.Tensor) (*tensor.Tensor, *NormCache) {
	seq, dim := x.Shape()[0], x.Shape()[1]
	out := tensor.NewTensor([]int{seq, dim})
	normed := tensor.NewTensor([]int{seq, dim})
	invStd := make([]float32, seq)

	xData := x.Data()
	gamma := ln.gamma.Data()
	beta := ln.beta.Data()

	for i := 0; i < seq; i++ {
		row := xData[i*dim : (i+1)*dim]

		var mean float32
		for _, v := range row {
			mean += v
		}
		mean /= float32(dim)

		var variance float32
		for _, v := range row {
			d := v - mean
			variance += d * d
		}
		variance /= float32(dim)

		inv := float32(1 / math.Sqrt(float64(variance)+normEps))
		invStd[i] = inv

		nRow := normed.Data()[i*dim : (i+1)*dim]
		oRow := out.Data()[i*dim : (i+1)*dim]
		for j, v := range row {
			n := (v - mean) * inv
			nRow[j] = n
			oRow[j] = gamma[j]*n + beta[j]
		}
	}

	return out, &NormCache{normed: normed, invStd: invStd}
}

// Backward propagates the gradient through the normalization and
// accumulates the gamma/beta gradients
func (ln *LayerNorm) Backward(grad *tensor.Tensor, cache *NormCache) *tensor.Tensor {
	seq, dim := grad.Shape()[0], grad.Shape()[1]
	out := tensor.NewTensor([]int{seq, dim})

	gData := grad.Data()
	nData := cache.normed.Data()
	gamma := ln.gamma.Data()
	gammaGrad := ln.gamma.Grad()
	betaGrad := ln.beta.Grad()

	for i := 0; i < seq; i++ {
		gRow := gData[i*dim : (i+1)*dim]
		nRow := nData[i*dim : (i+1)*dim]

		// dgamma/dbeta accumulate across positions
		var meanDn, meanDnN float32
		dn := make([]float32, dim)
		for j, g := range gRow {
			gammaGrad[j] += g * nRow[j]
			betaGrad[j] += g

			d := g * gamma[j]
			dn[j] = d
			meanDn += d
			meanDnN += d * nRow[j]
		}
		meanDn /= float32(dim)
		meanDnN /= float32(dim)

		inv := cache.invStd[i]
		oRow := out.Data()[i*dim : (i+1)*dim]
		for j := range oRow {
			oRow[j] = inv * (dn[j] - meanDn - nRow[j]*meanDnN)
		}
	}

	return out
}

// Parameters returns the trainable tensors
func (ln *LayerNorm) Parameters() []*tensor.Tensor {
	return []*tensor.Tensor{ln.gamma, ln.beta}
}
