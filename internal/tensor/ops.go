package tensor

import (
	"fmt"
	"math"
)

// Element-wise Operations

// Add performs element-wise addition: C = A + B
func Add(a, b *Tensor) *Tensor {
	if !shapesMatch(a.shape, b.shape) {
		panic(fmt.Sprintf("shape mismatch: %v vs %v", a.shape, b.shape))
	}

	result := NewTensor(a.shape)
	for i := range result.data {
		result.data[i] = a.data[i] + b.data[i]
	}
	return result
}

// AddInPlace accumulates B into A: A += B
func AddInPlace(a, b *Tensor) {
	if !shapesMatch(a.shape, b.shape) {
		panic(fmt.Sprintf("shape mismatch: %v vs %v", a.shape, b.shape))
	}

	for i := range a.data {
		a.data[i] += b.data[i]
	}
}

// Sub performs element-wise subtraction: C = A - B
func Sub(a, b *Tensor) *Tensor {
	if !shapesMatch(a.shape, b.shape) {
		panic(fmt.Sprintf("shape mismatch: %v vs %v", a.shape, b.shape))
	}

	result := NewTensor(a.shape)
	for i := range result.data {
		result.data[i] = a.data[i] - b.data[i]
	}
	return result
}

// MulScalar multiplies every element by a scalar
func MulScalar(a *Tensor, scalar float32) *Tensor {
	result := NewTensor(a.shape)
	for i := range result.data {
		result.data[i] = a.data[i] * scalar
	}
	return result
}

// ReLU applies max(0, x) element-wise
func ReLU(a *Tensor) *Tensor {
	result := NewTensor(a.shape)
	for i, v := range a.data {
		if v > 0 {
			result.data[i] = v
		}
	}
	return result
}

// ReLUBackward masks the upstream gradient where the forward input was <= 0
func ReLUBackward(gradOut, input *Tensor) *Tensor {
	if !shapesMatch(gradOut.shape, input.shape) {
		panic(fmt.Sprintf("shape mismatch: %v vs %v", gradOut.shape, input.shape))
	}

	result := NewTensor(gradOut.shape)
	for i := range result.data {
		if input.data[i] > 0 {
			result.data[i] = gradOut.data[i]
		}
	}
	return result
}

// Sigmoid applies 1/(1+exp(-x)) element-wise
func Sigmoid(a *Tensor) *Tensor {
	result := NewTensor(a.shape)
	for i, v := range a.data {
		result.data[i] = float32(1.0 / (1.0 + math.Exp(-float64(v))))
	}
	return result
}

// SoftmaxRows applies a numerically stable softmax along the last
// dimension of a 2D tensor
func SoftmaxRows(a *Tensor) *Tensor {
	if len(a.shape) != 2 {
		panic("SoftmaxRows only supports 2D tensors")
	}

	rows, cols := a.shape[0], a.shape[1]
	result := NewTensor(a.shape)

	for i := 0; i < rows; i++ {
		row := a.data[i*cols : (i+1)*cols]
		out := result.data[i*cols : (i+1)*cols]

		maxVal := row[0]
		for _, v := range row[1:] {
			if v > maxVal {
				maxVal = v
			}
		}

		var sum float64
		for j, v := range row {
			e := math.Exp(float64(v - maxVal))
			out[j] = float32(e)
			sum += e
		}

		inv := float32(1.0 / sum)
		for j := range out {
			out[j] *= inv
		}
	}

	return result
}

// Argmax returns the index of the largest value in a 1D tensor
func Argmax(a *Tensor) int {
	best := 0
	bestVal := a.data[0]
	for i, v := range a.data[1:] {
		if v > bestVal {
			bestVal = v
			best = i + 1
		}
	}
	return best
}

// Sum returns the sum of all elements
func Sum(a *Tensor) float32 {
	var sum float32
	for _, v := range a.data {
		sum += v
	}
	return sum
}

// Mean returns the mean of all elements
func Mean(a *Tensor) float32 {
	if len(a.data) == 0 {
		return 0
	}
	return Sum(a) / float32(len(a.data))
}
