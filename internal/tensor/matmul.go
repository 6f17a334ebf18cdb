package tensor

import "fmt"

// MatMul computes C = A @ B for 2D tensors.
// A: [M, K], B: [K, N] -> C: [M, N]
//
// Uses cache-blocked iteration; weight matrices in this engine are small
// enough that a single-threaded blocked kernel is the sweet spot.
func MatMul(a, b *Tensor) *Tensor {
	if len(a.shape) != 2 || len(b.shape) != 2 {
		panic(fmt.Sprintf("MatMul requires 2D tensors, got %v and %v", a.shape, b.shape))
	}
	if a.shape[1] != b.shape[0] {
		panic(fmt.Sprintf("MatMul dimension mismatch: %v x %v", a.shape, b.shape))
	}

	M, K, N := a.shape[0], a.shape[1], b.shape[1]
	result := NewTensor([]int{M, N})

	const blockSize = 64

	for i0 := 0; i0 < M; i0 += blockSize {
		iEnd := min(i0+blockSize, M)
		for k0 := 0; k0 < K; k0 += blockSize {
			kEnd := min(k0+blockSize, K)
			for i := i0; i < iEnd; i++ {
				for k := k0; k < kEnd; k++ {
					aik := a.data[i*K+k]
					if aik == 0 {
						continue
					}
					bRow := b.data[k*N : (k+1)*N]
					cRow := result.data[i*N : (i+1)*N]
					for j, bv := range bRow {
						cRow[j] += aik * bv
					}
				}
			}
		}
	}

	return result
}

// MatMulTransposeA computes C = Aᵀ @ B.
// A: [K, M], B: [K, N] -> C: [M, N]
//
// Used for weight gradients: dW = Xᵀ @ dY without materializing Xᵀ.
func MatMulTransposeA(a, b *Tensor) *Tensor {
	if len(a.shape) != 2 || len(b.shape) != 2 {
		panic(fmt.Sprintf("MatMulTransposeA requires 2D tensors, got %v and %v", a.shape, b.shape))
	}
	if a.shape[0] != b.shape[0] {
		panic(fmt.Sprintf("MatMulTransposeA dimension mismatch: %v x %v", a.shape, b.shape))
	}

	K, M, N := a.shape[0], a.shape[1], b.shape[1]
	result := NewTensor([]int{M, N})

	for k := 0; k < K; k++ {
		aRow := a.data[k*M : (k+1)*M]
		bRow := b.data[k*N : (k+1)*N]
		for i, av := range aRow {
			if av == 0 {
				continue
			}
			cRow := result.data[i*N : (i+1)*N]
			for j, bv := range bRow {
				cRow[j] += av * bv
			}
		}
	}

	return result
}

// MatMulTransposeB computes C = A @ Bᵀ.
// A: [M, K], B: [N, K] -> C: [M, N]
//
// Used for input gradients: dX = dY @ Wᵀ without materializing Wᵀ.
func MatMulTransposeB(a, b *Tensor) *Tensor {
	if len(a.shape) != 2 || len(b.shape) != 2 {
		panic(fmt.Sprintf("MatMulTransposeB requires 2D tensors, got %v and %v", a.shape, b.shape))
	}
	if a.shape[1] != b.shape[1] {
		panic(fmt.Sprintf("MatMulTransposeB dimension mismatch: %v x %v", a.shape, b.shape))
	}

	M, K, N := a.shape[0], a.shape[1], b.shape[0]
	result := NewTensor([]int{M, N})

	for i := 0; i < M; i++ {
		aRow := a.data[i*K : (i+1)*K]
		cRow := result.data[i*N : (i+1)*N]
		for j := 0; j < N; j++ {
			bRow := b.data[j*K : (j+1)*K]
			var sum float32
			for k, av := range aRow {
				sum += av * bRow[k]
			}
			cRow[j] = sum
		}
	}

	return result
}

// Transpose creates a transposed copy of a 2D tensor
func Transpose(t *Tensor) *Tensor {
	if len(t.shape) != 2 {
		panic("Transpose only supports 2D tensors")
	}

	M, N := t.shape[0], t.shape[1]
	result := NewTensor([]int{N, M})

	// 32x32 tiles for cache locality
	const blockSize = 32

	for i := 0; i < M; i += blockSize {
		for j := 0; j < N; j += blockSize {
			iEnd := min(i+blockSize, M)
			jEnd := min(j+blockSize, N)

			for ii := i; ii < iEnd; ii++ {
				for jj := j; jj < jEnd; jj++ {
					result.data[jj*M+ii] = t.data[ii*N+jj]
				}
			}
		}
	}

	return result
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
