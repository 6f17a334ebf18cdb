package train

import (
	"math"
	"testing"

	"github.com/alignlab/styletrain/internal/tensor"
)

func TestCrossEntropyUniformLogits(t *testing.T) {
	// All-zero logits give a uniform distribution; loss is log(vocab)
	logits := tensor.NewTensor([]int{2, 4})
	labels := []int{1, 3}

	loss, grad := CrossEntropy(logits, labels)

	want := math.Log(4)
	if math.Abs(loss-want) > 1e-5 {
		t.Errorf("loss = %f, want %f", loss, want)
	}

	// grad = (p - onehot) / seq; p is 0.25 everywhere
	g := grad.Data()
	for i := 0; i < 2; i++ {
		for j := 0; j < 4; j++ {
			want := 0.25 / 2
			if j == labels[i] {
				want = (0.25 - 1) / 2
			}
			got := float64(g[i*4+j])
			if math.Abs(got-want) > 1e-5 {
				t.Errorf("grad[%d][%d] = %f, want %f", i, j, got, want)
			}
		}
	}
}

func TestCrossEntropyConfidentPrediction(t *testing.T) {
	logits := tensor.NewTensorFromData([]float32{10, 0, 0, 0}, []int{1, 4})

	correct, _ := CrossEntropy(logits, []int{0})
	wrong, _ := CrossEntropy(logits, []int{2})

	if correct >= wrong {
		t.Errorf("confident correct loss %f should be below wrong loss %f", correct, wrong)
	}
	if correct > 0.01 {
		t.Errorf("confident correct loss = %f, want near 0", correct)
	}
}

func TestCrossEntropyGradSumsToZero(t *testing.T) {
	// Per row, softmax sums to 1 and the onehot subtracts 1
	logits := tensor.NewTensorFromData([]float32{1, -2, 0.5, 3, 0, 0, 1, 1}, []int{2, 4})
	_, grad := CrossEntropy(logits, []int{2, 0})

	g := grad.Data()
	for i := 0; i < 2; i++ {
		var sum float64
		for j := 0; j < 4; j++ {
			sum += float64(g[i*4+j])
		}
		if math.Abs(sum) > 1e-5 {
			t.Errorf("row %d grad sums to %f, want 0", i, sum)
		}
	}
}

func TestBinaryCrossEntropy(t *testing.T) {
	// Zero logits mean p = 0.5 for every slot: loss is log(2)
	logits := tensor.NewTensor([]int{1, 4})
	labels := []int{1, 0, 1, 0}

	loss, grad := BinaryCrossEntropy(logits, labels)

	want := math.Log(2)
	if math.Abs(loss-want) > 1e-5 {
		t.Errorf("loss = %f, want %f", loss, want)
	}

	// grad = (sigmoid - y) / slots: positive slots pull down, negative up
	g := grad.Data()
	for i, y := range labels {
		want := (0.5 - float64(y)) / 4
		if math.Abs(float64(g[i])-want) > 1e-5 {
			t.Errorf("grad[%d] = %f, want %f", i, g[i], want)
		}
	}
}

func TestBinaryCrossEntropySaturatedLogits(t *testing.T) {
	// Extreme logits must not produce Inf or NaN
	logits := tensor.NewTensorFromData([]float32{100, -100}, []int{1, 2})

	loss, grad := BinaryCrossEntropy(logits, []int{0, 1})
	if math.IsInf(loss, 0) || math.IsNaN(loss) {
		t.Errorf("loss = %f, want finite", loss)
	}
	for i, g := range grad.Data() {
		if math.IsInf(float64(g), 0) || math.IsNaN(float64(g)) {
			t.Errorf("grad[%d] = %f, want finite", i, g)
		}
	}

	// Both slots are maximally wrong, so the loss is large
	if loss < 5 {
		t.Errorf("loss = %f, want large for maximally wrong prediction", loss)
	}
}

func TestAdamStepMovesParameters(t *testing.T) {
	p := tensor.NewTensorFromData([]float32{1, 1}, []int{1, 2})
	p.Grad()[0] = 1
	p.Grad()[1] = -1

	params := []*tensor.Tensor{p}
	opt := NewAdam(params, 0.1)
	opt.Step(params)

	if p.Data()[0] >= 1 {
		t.Errorf("positive gradient should decrease the parameter, got %f", p.Data()[0])
	}
	if p.Data()[1] <= 1 {
		t.Errorf("negative gradient should increase the parameter, got %f", p.Data()[1])
	}
}

func TestAdamStateRoundTrip(t *testing.T) {
	p := tensor.NewTensorFromData([]float32{1}, []int{1})
	p.Grad()[0] = 0.5

	params := []*tensor.Tensor{p}
	opt := NewAdam(params, 0.01)
	opt.Step(params)
	opt.Step(params)

	m, v, step := opt.State()
	if step != 2 {
		t.Errorf("step = %d, want 2", step)
	}
	if m[0][0] == 0 || v[0][0] == 0 {
		t.Error("moments should be nonzero after steps")
	}

	opt2 := NewAdam(params, 0.01)
	opt2.SetStep(step)
	_, _, got := opt2.State()
	if got != 2 {
		t.Errorf("restored step = %d, want 2", got)
	}
}
