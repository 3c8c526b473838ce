package nn

import (
	"math"
	"math/rand"
	"testing"
)

func testNet(t *testing.T) *MultiTaskNet {
	t.Helper()
	net, err := NewMultiTaskNet(NetConfig{
		EncoderDim:  4,
		HiddenDim:   3,
		TaskClasses: []int{4, 2},
		Seed:        11,
	})
	if err != nil {
		t.Fatalf("NewMultiTaskNet: %v", err)
	}
	return net
}

func TestNewMultiTaskNetValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  NetConfig
	}{
		{"zero encoder dim", NetConfig{EncoderDim: 0, HiddenDim: 3, TaskClasses: []int{2}}},
		{"zero hidden dim", NetConfig{EncoderDim: 4, HiddenDim: 0, TaskClasses: []int{2}}},
		{"no tasks", NetConfig{EncoderDim: 4, HiddenDim: 3}},
		{"single class task", NetConfig{EncoderDim: 4, HiddenDim: 3, TaskClasses: []int{2, 1}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewMultiTaskNet(tc.cfg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestBackwardOnlyTouchesActiveHead(t *testing.T) {
	net := testNet(t)
	inputs := [][]float64{{0.1, -0.2, 0.3, 0.4}, {-0.5, 0.2, 0.0, 0.1}}
	targets := []int{1, 3}

	logits, cache := net.Forward(0, inputs)
	net.Backward(0, cache, CrossEntropyGrad(logits, targets))

	for _, g := range net.Heads[1].GradW {
		if g != 0 {
			t.Fatal("inactive head accumulated weight gradients")
		}
	}
	var trunkNonZero bool
	for _, g := range net.Trunk.GradW {
		if g != 0 {
			trunkNonZero = true
			break
		}
	}
	if !trunkNonZero {
		t.Error("trunk received no gradient from task 0")
	}
	var headNonZero bool
	for _, g := range net.Heads[0].GradW {
		if g != 0 {
			headNonZero = true
			break
		}
	}
	if !headNonZero {
		t.Error("active head received no gradient")
	}
}

// TestGradientsNumeric verifies the analytic gradients of the full
// trunk+head+cross-entropy path against central finite differences.
func TestGradientsNumeric(t *testing.T) {
	net := testNet(t)
	inputs := [][]float64{
		{0.3, -0.1, 0.7, -0.4},
		{-0.2, 0.5, 0.1, 0.9},
		{0.0, 0.0, -0.6, 0.2},
	}
	targets := []int{2, 0, 1}
	const task = 0

	loss := func() float64 {
		logits, _ := net.Forward(task, inputs)
		return CrossEntropyBatch(logits, targets)
	}

	net.ZeroGrad()
	logits, cache := net.Forward(task, inputs)
	net.Backward(task, cache, CrossEntropyGrad(logits, targets))

	const eps = 1e-5
	const tol = 1e-6
	for _, p := range net.Params() {
		for j := 0; j < len(p.Data); j += 5 { // spot-check every 5th weight
			orig := p.Data[j]
			p.Data[j] = orig + eps
			up := loss()
			p.Data[j] = orig - eps
			down := loss()
			p.Data[j] = orig

			numeric := (up - down) / (2 * eps)
			if math.Abs(numeric-p.Grad[j]) > tol {
				t.Fatalf("%s[%d]: analytic %g vs numeric %g", p.Name, j, p.Grad[j], numeric)
			}
		}
	}
}

func TestInferMatchesForward(t *testing.T) {
	net := testNet(t)
	x := []float64{0.4, -0.3, 0.2, 0.1}

	logitsBatch, _ := net.Forward(1, [][]float64{x})
	logitsSingle := net.Infer(1, x)

	for i := range logitsSingle {
		if math.Abs(logitsSingle[i]-logitsBatch[0][i]) > 1e-12 {
			t.Errorf("Infer[%d] = %g, Forward gave %g", i, logitsSingle[i], logitsBatch[0][i])
		}
	}
}

func TestParamsOrderingStable(t *testing.T) {
	net := testNet(t)
	params := net.Params()
	wantNames := []string{
		"trunk.weight", "trunk.bias",
		"head.0.weight", "head.0.bias",
		"head.1.weight", "head.1.bias",
	}
	if len(params) != len(wantNames) {
		t.Fatalf("got %d params, want %d", len(params), len(wantNames))
	}
	for i, p := range params {
		if p.Name != wantNames[i] {
			t.Errorf("params[%d] = %q, want %q", i, p.Name, wantNames[i])
		}
	}
}

// TestLearnsSeparableTasks trains both heads on linearly separable synthetic
// embeddings and expects near-perfect training accuracy.
func TestLearnsSeparableTasks(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	net, err := NewMultiTaskNet(NetConfig{
		EncoderDim:  8,
		HiddenDim:   16,
		TaskClasses: []int{4, 2},
		Seed:        3,
	})
	if err != nil {
		t.Fatalf("NewMultiTaskNet: %v", err)
	}

	makeData := func(classes, n int) ([][]float64, []int) {
		inputs := make([][]float64, n)
		labels := make([]int, n)
		for i := range inputs {
			label := i % classes
			vec := make([]float64, 8)
			for j := range vec {
				vec[j] = rng.NormFloat64() * 0.1
			}
			vec[label] += 2.0 // class direction dominates the noise
			inputs[i] = vec
			labels[i] = label
		}
		return inputs, labels
	}

	topicX, topicY := makeData(4, 80)
	sentX, sentY := makeData(2, 80)

	opt := NewAdam(net.Params(), 0.9, 0.999, 1e-8, 0)
	for step := 0; step < 150; step++ {
		for task, data := range []struct {
			x [][]float64
			y []int
		}{{topicX, topicY}, {sentX, sentY}} {
			net.ZeroGrad()
			logits, cache := net.Forward(task, data.x)
			net.Backward(task, cache, CrossEntropyGrad(logits, data.y))
			ClipGradients(net.Params(), 1.0)
			opt.Step(net.Params(), 0.01)
		}
	}

	accuracy := func(task int, x [][]float64, y []int) float64 {
		correct := 0
		for i, vec := range x {
			logits := net.Infer(task, vec)
			best := 0
			for c := range logits {
				if logits[c] > logits[best] {
					best = c
				}
			}
			if best == y[i] {
				correct++
			}
		}
		return float64(correct) / float64(len(x))
	}

	if acc := accuracy(0, topicX, topicY); acc < 0.95 {
		t.Errorf("topic accuracy = %g, want >= 0.95", acc)
	}
	if acc := accuracy(1, sentX, sentY); acc < 0.95 {
		t.Errorf("sentiment accuracy = %g, want >= 0.95", acc)
	}
}
