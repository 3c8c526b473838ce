package nn

import (
	"math"
	"testing"
)

func TestSoftmax(t *testing.T) {
	probs := Softmax([]float64{1, 2, 3})
	var sum float64
	for _, p := range probs {
		if p <= 0 || p >= 1 {
			t.Fatalf("prob %g out of (0,1)", p)
		}
		sum += p
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("probs sum to %g, want 1", sum)
	}
	if !(probs[2] > probs[1] && probs[1] > probs[0]) {
		t.Errorf("softmax not monotone: %v", probs)
	}
}

func TestSoftmaxLargeLogits(t *testing.T) {
	// Max subtraction keeps huge logits finite.
	probs := Softmax([]float64{1000, 1001, 999})
	for i, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			t.Fatalf("probs[%d] = %g", i, p)
		}
	}
	if probs[1] < probs[0] || probs[1] < probs[2] {
		t.Errorf("wrong argmax: %v", probs)
	}
}

func TestCrossEntropyUniform(t *testing.T) {
	// Equal logits give loss ln(C) regardless of target.
	logits := []float64{0.7, 0.7, 0.7, 0.7}
	for target := 0; target < 4; target++ {
		loss := CrossEntropy(logits, target)
		if math.Abs(loss-math.Log(4)) > 1e-12 {
			t.Errorf("loss = %g, want ln(4) = %g", loss, math.Log(4))
		}
	}
}

func TestCrossEntropyMatchesSoftmax(t *testing.T) {
	logits := []float64{0.2, -1.3, 2.4}
	probs := Softmax(logits)
	for target := range logits {
		want := -math.Log(probs[target])
		got := CrossEntropy(logits, target)
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("target %d: loss = %g, want %g", target, got, want)
		}
	}
}

func TestCrossEntropyBatch(t *testing.T) {
	logits := [][]float64{
		{2, 0},
		{0, 2},
	}
	targets := []int{0, 1}
	got := CrossEntropyBatch(logits, targets)
	want := CrossEntropy(logits[0], 0) // both rows have identical loss
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("batch loss = %g, want %g", got, want)
	}
}

func TestCrossEntropyGrad(t *testing.T) {
	logits := [][]float64{
		{0.5, -0.5, 1.5},
		{-1, 0, 1},
	}
	targets := []int{2, 0}

	grads := CrossEntropyGrad(logits, targets)

	for i, g := range grads {
		// Each row of softmax - onehot sums to zero.
		var sum float64
		for _, v := range g {
			sum += v
		}
		if math.Abs(sum) > 1e-12 {
			t.Errorf("row %d grad sums to %g, want 0", i, sum)
		}
		// The target entry must be negative (pushing its logit up).
		if g[targets[i]] >= 0 {
			t.Errorf("row %d target grad = %g, want < 0", i, g[targets[i]])
		}
	}

	// Gradient matches (softmax - onehot)/batch exactly.
	probs := Softmax(logits[0])
	want := (probs[0] - 0) / 2
	if math.Abs(grads[0][0]-want) > 1e-12 {
		t.Errorf("grads[0][0] = %g, want %g", grads[0][0], want)
	}
}
