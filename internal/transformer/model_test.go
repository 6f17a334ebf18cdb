package transformer

import (
	"math"
	"math/rand"
	"testing"

	"github.com/alignlab/styletrain/internal/tensor"
	"github.com/alignlab/styletrain/internal/tools"
)

func testConfig() Config {
	return Config{
		ModelDim:     16,
		HiddenDim:    32,
		NumHeads:     2,
		NumLayers:    2,
		VocabSize:    50,
		MaxSeqLength: 12,
	}
}

func onesMask(n int) []int {
	mask := make([]int, n)
	for i := range mask {
		mask[i] = 1
	}
	return mask
}

func TestForwardShapes(t *testing.T) {
	model, err := NewModel(testConfig(), 1)
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}

	ids := []int{2, 5, 10, 3}
	logits, toolLogits, cache, err := model.Forward(ids, onesMask(len(ids)))
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	if logits.Shape()[0] != 4 || logits.Shape()[1] != 50 {
		t.Errorf("logits shape = %v, want [4 50]", logits.Shape())
	}
	if toolLogits.Shape()[0] != 1 || toolLogits.Shape()[1] != tools.NumTools {
		t.Errorf("tool logits shape = %v, want [1 %d]", toolLogits.Shape(), tools.NumTools)
	}
	if cache == nil {
		t.Error("cache should not be nil")
	}
}

func TestForwardErrors(t *testing.T) {
	model, err := NewModel(testConfig(), 1)
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}

	tests := []struct {
		name string
		ids  []int
	}{
		{"empty sequence", nil},
		{"too long", make([]int, 13)},
		{"negative id", []int{2, -1}},
		{"id beyond vocab", []int{2, 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, _, err := model.Forward(tt.ids, onesMask(len(tt.ids))); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestForwardDeterministicAcrossSeeds(t *testing.T) {
	m1, _ := NewModel(testConfig(), 7)
	m2, _ := NewModel(testConfig(), 7)
	m3, _ := NewModel(testConfig(), 8)

	ids := []int{4, 9, 2}
	l1, _, _, err := m1.Forward(ids, onesMask(3))
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	l2, _, _, _ := m2.Forward(ids, onesMask(3))
	l3, _, _, _ := m3.Forward(ids, onesMask(3))

	for i := range l1.Data() {
		if l1.Data()[i] != l2.Data()[i] {
			t.Fatal("same seed should give identical logits")
		}
	}

	same := true
	for i := range l1.Data() {
		if l1.Data()[i] != l3.Data()[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds should give different logits")
	}
}

func TestParameterOrderStable(t *testing.T) {
	m1, _ := NewModel(testConfig(), 3)
	m2, _ := NewModel(testConfig(), 3)

	p1, p2 := m1.Parameters(), m2.Parameters()
	if len(p1) != len(p2) {
		t.Fatalf("parameter counts differ: %d vs %d", len(p1), len(p2))
	}
	for i := range p1 {
		if p1[i].Size() != p2[i].Size() {
			t.Errorf("parameter %d: size %d vs %d", i, p1[i].Size(), p2[i].Size())
		}
	}

	if m1.NumParameters() == 0 {
		t.Error("NumParameters should be positive")
	}
}

func TestBackwardAccumulatesGradients(t *testing.T) {
	model, _ := NewModel(testConfig(), 1)

	ids := []int{2, 5, 10}
	logits, toolLogits, cache, err := model.Forward(ids, onesMask(3))
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	dLogits := tensor.NewTensor(logits.Shape())
	for i := range dLogits.Data() {
		dLogits.Data()[i] = 0.01
	}
	dTool := tensor.NewTensor(toolLogits.Shape())
	for i := range dTool.Data() {
		dTool.Data()[i] = 0.01
	}

	model.Backward(dLogits, dTool, cache)

	nonZero := 0
	for _, p := range model.Parameters() {
		for _, g := range p.Grad() {
			if g != 0 {
				nonZero++
				break
			}
		}
	}
	// Position embeddings beyond the sequence stay zero, but every
	// parameter tensor should have received some gradient.
	if nonZero < len(model.Parameters())-1 {
		t.Errorf("only %d of %d parameter tensors received gradient", nonZero, len(model.Parameters()))
	}

	model.ZeroGrad()
	for _, p := range model.Parameters() {
		for _, g := range p.Grad() {
			if g != 0 {
				t.Fatal("ZeroGrad left nonzero gradient")
			}
		}
	}
}

// Finite-difference check of the feed-forward backward pass. The loss is
// the sum of outputs, so dOut is all ones.
func TestFeedForwardGradientCheck(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	ff := NewFeedForward(3, 4, 3, rng)

	x := tensor.NewRandom([]int{2, 3}, 0.5, rng)

	out, cache := ff.Forward(x)
	dOut := tensor.NewTensor(out.Shape())
	for i := range dOut.Data() {
		dOut.Data()[i] = 1
	}
	dx := ff.Backward(dOut, cache)

	const eps = 1e-2
	sumForward := func() float64 {
		y, _ := ff.Forward(x)
		var s float64
		for _, v := range y.Data() {
			s += float64(v)
		}
		return s
	}

	for i := range x.Data() {
		orig := x.Data()[i]

		x.Data()[i] = orig + eps
		plus := sumForward()
		x.Data()[i] = orig - eps
		minus := sumForward()
		x.Data()[i] = orig

		numeric := (plus - minus) / (2 * eps)
		analytic := float64(dx.Data()[i])

		if math.Abs(numeric-analytic) > 0.05 {
			t.Errorf("dx[%d]: analytic %f, numeric %f", i, analytic, numeric)
		}
	}
}

func TestLayerNormOutputNormalized(t *testing.T) {
	ln := NewLayerNorm(8)
	x := tensor.NewRandom([]int{3, 8}, 2.0, rand.New(rand.NewSource(5)))

	out, _ := ln.Forward(x)

	for i := 0; i < 3; i++ {
		row := out.Row(i)
		var mean float64
		for _, v := range row {
			mean += float64(v)
		}
		mean /= 8

		var variance float64
		for _, v := range row {
			d := float64(v) - mean
			variance += d * d
		}
		variance /= 8

		if math.Abs(mean) > 1e-4 {
			t.Errorf("row %d mean = %f, want ~0", i, mean)
		}
		if math.Abs(variance-1) > 1e-3 {
			t.Errorf("row %d variance = %f, want ~1", i, variance)
		}
	}
}

func TestEnhancerIsResidual(t *testing.T) {
	cfg := testConfig()
	model, _ := NewModel(cfg, 1)

	// A zero enhancer must leave the hidden states (and so the logits)
	// equal to the plain transformer output plus nothing.
	base, _, _, err := model.Forward([]int{2, 3}, onesMask(2))
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	model.SetEnhancer(zeroEnhancer{})
	swapped, _, _, err := model.Forward([]int{2, 3}, onesMask(2))
	if err != nil {
		t.Fatalf("Forward with zero enhancer failed: %v", err)
	}

	same := true
	for i := range base.Data() {
		if base.Data()[i] != swapped.Data()[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("default enhancer should contribute a nonzero residual")
	}
}

// zeroEnhancer returns an all-zero refinement, making the residual a no-op
type zeroEnhancer struct{}

func (z zeroEnhancer) Forward(x *tensor.Tensor) (*tensor.Tensor, *FFCache) {
	return tensor.NewTensor(x.Shape()), &FFCache{x: x, pre: tensor.NewTensor(x.Shape())}
}

func (z zeroEnhancer) Backward(grad *tensor.Tensor, cache *FFCache) *tensor.Tensor {
	return tensor.NewTensor(grad.Shape())
}

func (z zeroEnhancer) Parameters() []*tensor.Tensor {
	return nil
}
