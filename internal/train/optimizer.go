package train

import (
	"math"

	"github.com/alignlab/styletrain/internal/tensor"
)

// Adam implements the Adam optimizer.
//
// Update rule per element:
//
//	m = beta1*m + (1-beta1)*g
//	v = beta2*v + (1-beta2)*g^2
//	param -= lr * (m / (1-beta1^t)) / (sqrt(v / (1-beta2^t)) + eps)
//
// The moment buffers parallel the parameter list by index; that ordering is
// part of the checkpoint format.
type Adam struct {
	lr      float64
	beta1   float64
	beta2   float64
	epsilon float64

	m [][]float32
	v [][]float32
	t int
}

// NewAdam creates an Adam optimizer with standard transformer betas
func NewAdam(params []*tensor.Tensor, lr float64) *Adam {
	m := make([][]float32, len(params))
	v := make([][]float32, len(params))
	for i, p := range params {
		m[i] = make([]float32, p.Size())
		v[i] = make([]float32, p.Size())
	}

	return &Adam{
		lr:      lr,
		beta1:   0.9,
		beta2:   0.999,
		epsilon: 1e-8,
		m:       m,
		v:       v,
	}
}

// Step applies one synchronous update to every parameter from its
// accumulated gradient. This is the only place model parameters mutate.
func (a *Adam) Step(params []*tensor.Tensor) {
	a.t++

	bias1 := 1 - math.Pow(a.beta1, float64(a.t))
	bias2 := 1 - math.Pow(a.beta2, float64(a.t))

	b1 := float32(a.beta1)
	b2 := float32(a.beta2)

	for i, p := range params {
		data := p.Data()
		grad := p.Grad()
		m := a.m[i]
		v := a.v[i]

		for j, g := range grad {
			m[j] = b1*m[j] + (1-b1)*g
			v[j] = b2*v[j] + (1-b2)*g*g

			mHat := float64(m[j]) / bias1
			vHat := float64(v[j]) / bias2

			data[j] -= float32(a.lr * mHat / (math.Sqrt(vHat) + a.epsilon))
		}
	}
}

// ZeroGrad clears the gradients of all parameters
func (a *Adam) ZeroGrad(params []*tensor.Tensor) {
	for _, p := range params {
		p.ZeroGrad()
	}
}

// State exposes the moment buffers and step counter for checkpointing
func (a *Adam) State() (m, v [][]float32, t int) {
	return a.m, a.v, a.t
}

// SetStep restores the bias-correction step counter from a checkpoint.
// Moment buffers are restored in place by the checkpoint loader.
func (a *Adam) SetStep(t int) {
	a.t = t
}
