package tensor

import (
	"fmt"
	"math"
	"math/rand"
)

// Tensor represents a multi-dimensional array of float32 values.
//
// Trainable tensors additionally carry a gradient buffer of the same size,
// allocated lazily by EnsureGrad. The gradient is accumulated by backward
// passes and consumed by the optimizer.
type Tensor struct {
	data   []float32
	grad   []float32 // nil until EnsureGrad
	shape  []int
	stride []int
}

// NewTensor creates a zero-initialized tensor with the given shape
func NewTensor(shape []int) *Tensor {
	size := 1
	for _, dim := range shape {
		size *= dim
	}

	return &Tensor{
		data:   make([]float32, size),
		shape:  append([]int(nil), shape...),
		stride: computeStrides(shape),
	}
}

// NewTensorFromData creates a tensor wrapping existing data
func NewTensorFromData(data []float32, shape []int) *Tensor {
	size := 1
	for _, dim := range shape {
		size *= dim
	}
	if len(data) != size {
		panic(fmt.Sprintf("data length %d does not match shape %v", len(data), shape))
	}

	return &Tensor{
		data:   data,
		shape:  append([]int(nil), shape...),
		stride: computeStrides(shape),
	}
}

// NewRandom creates a tensor initialized from a scaled normal distribution.
// The rng is supplied by the caller so model construction is reproducible.
func NewRandom(shape []int, scale float64, rng *rand.Rand) *Tensor {
	t := NewTensor(shape)
	for i := range t.data {
		t.data[i] = float32(rng.NormFloat64() * scale)
	}
	return t
}

// computeStrides calculates row-major memory layout strides
func computeStrides(shape []int) []int {
	strides := make([]int, len(shape))
	if len(shape) == 0 {
		return strides
	}

	strides[len(shape)-1] = 1
	for i := len(shape) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * shape[i+1]
	}

	return strides
}

// Shape returns the tensor's shape
func (t *Tensor) Shape() []int {
	return t.shape
}

// Size returns the total number of elements
func (t *Tensor) Size() int {
	size := 1
	for _, dim := range t.shape {
		size *= dim
	}
	return size
}

// NumDims returns the number of dimensions
func (t *Tensor) NumDims() int {
	return len(t.shape)
}

// At returns the value at the given multi-dimensional index
func (t *Tensor) At(indices ...int) float32 {
	return t.data[t.index(indices)]
}

// Set sets the value at the given multi-dimensional index
func (t *Tensor) Set(value float32, indices ...int) {
	t.data[t.index(indices)] = value
}

func (t *Tensor) index(indices []int) int {
	if len(indices) != len(t.shape) {
		panic(fmt.Sprintf("expected %d indices (shape=%v), got %d", len(t.shape), t.shape, len(indices)))
	}

	idx := 0
	for i, index := range indices {
		if index < 0 || index >= t.shape[i] {
			panic(fmt.Sprintf("index %d out of bounds for dimension %d (size %d)", index, i, t.shape[i]))
		}
		idx += index * t.stride[i]
	}
	return idx
}

// Data returns the underlying float32 slice
func (t *Tensor) Data() []float32 {
	return t.data
}

// Grad returns the gradient buffer, allocating it if needed
func (t *Tensor) Grad() []float32 {
	t.EnsureGrad()
	return t.grad
}

// EnsureGrad allocates the gradient buffer if it does not exist yet
func (t *Tensor) EnsureGrad() {
	if t.grad == nil {
		t.grad = make([]float32, len(t.data))
	}
}

// ZeroGrad resets the gradient buffer to zero
func (t *Tensor) ZeroGrad() {
	if t.grad == nil {
		return
	}
	for i := range t.grad {
		t.grad[i] = 0
	}
}

// Clone creates an independent copy of the tensor data (gradients are not copied)
func (t *Tensor) Clone() *Tensor {
	c := NewTensor(t.shape)
	copy(c.data, t.data)
	return c
}

// Reshape returns a view with a new shape sharing the same data and gradient
func Reshape(t *Tensor, newShape []int) *Tensor {
	newSize := 1
	for _, dim := range newShape {
		newSize *= dim
	}
	if newSize != t.Size() {
		panic(fmt.Sprintf("cannot reshape %v to %v", t.shape, newShape))
	}

	return &Tensor{
		data:   t.data,
		grad:   t.grad,
		shape:  append([]int(nil), newShape...),
		stride: computeStrides(newShape),
	}
}

// Row returns a copy of row i of a 2D tensor
func (t *Tensor) Row(i int) []float32 {
	if len(t.shape) != 2 {
		panic("Row only supports 2D tensors")
	}
	cols := t.shape[1]
	row := make([]float32, cols)
	copy(row, t.data[i*cols:(i+1)*cols])
	return row
}

// Norm returns the L2 norm of the tensor data
func (t *Tensor) Norm() float64 {
	var sum float64
	for _, v := range t.data {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

func shapesMatch(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
