package train

import (
	"math"

	"github.com/alignlab/styletrain/internal/tensor"
)

// probEps keeps the BCE logs finite
const probEps = 1e-7

// CrossEntropy computes the mean next-token cross-entropy over all
// positions of one sequence and the gradient w.r.t. the logits.
//
// logits: [seq, vocab], labels: [seq]. grad = (softmax - onehot) / seq.
func CrossEntropy(logits *tensor.Tensor, labels []int) (float64, *tensor.Tensor) {
	seq, vocab := logits.Shape()[0], logits.Shape()[1]

	probs := tensor.SoftmaxRows(logits)
	grad := probs.Clone()

	var loss float64
	pData := probs.Data()
	gData := grad.Data()
	inv := 1 / float32(seq)

	for i := 0; i < seq; i++ {
		label := labels[i]
		p := float64(pData[i*vocab+label])
		if p < probEps {
			p = probEps
		}
		loss -= math.Log(p)

		gData[i*vocab+label] -= 1
	}

	for i := range gData {
		gData[i] *= inv
	}

	return loss / float64(seq), grad
}

// BinaryCrossEntropy computes the mean multi-label BCE over the tool slots
// and the gradient w.r.t. the tool logits.
//
// logits: [1, slots], labels: multi-hot {0,1} of the same width.
// grad = (sigmoid - labels) / slots.
func BinaryCrossEntropy(logits *tensor.Tensor, labels []int) (float64, *tensor.Tensor) {
	slots := logits.Shape()[1]

	probs := tensor.Sigmoid(logits)
	grad := tensor.NewTensor(logits.Shape())

	var loss float64
	pData := probs.Data()
	gData := grad.Data()
	inv := 1 / float32(slots)

	for i := 0; i < slots; i++ {
		p := float64(pData[i])
		if p < probEps {
			p = probEps
		}
		if p > 1-probEps {
			p = 1 - probEps
		}

		y := float64(labels[i])
		loss -= y*math.Log(p) + (1-y)*math.Log(1-p)

		gData[i] = (pData[i] - float32(labels[i])) * inv
	}

	return loss / float64(slots), grad
}
