package nn

import (
	"fmt"
	"math"
)

// Softmax returns the softmax distribution over logits, with the max logit
// subtracted before exponentiation for numerical stability.
func Softmax(logits []float64) []float64 {
	maxLogit := logits[0]
	for _, v := range logits {
		if v > maxLogit {
			maxLogit = v
		}
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		e := math.Exp(v - maxLogit)
		out[i] = e
		sum += e
	}
	inv := 1.0 / sum
	for i := range out {
		out[i] *= inv
	}
	return out
}

// CrossEntropy computes -log softmax(logits)[target] via log-sum-exp.
func CrossEntropy(logits []float64, target int) float64 {
	if target < 0 || target >= len(logits) {
		panic(fmt.Sprintf("nn: cross entropy target %d out of range [0,%d)", target, len(logits)))
	}
	maxLogit := logits[0]
	for _, v := range logits {
		if v > maxLogit {
			maxLogit = v
		}
	}
	var sumExp float64
	for _, v := range logits {
		sumExp += math.Exp(v - maxLogit)
	}
	return maxLogit + math.Log(sumExp) - logits[target]
}

// CrossEntropyBatch averages the cross-entropy loss over a batch of logits.
func CrossEntropyBatch(logits [][]float64, targets []int) float64 {
	if len(logits) != len(targets) {
		panic(fmt.Sprintf("nn: batch size mismatch: %d logits vs %d targets", len(logits), len(targets)))
	}
	var total float64
	for i, row := range logits {
		total += CrossEntropy(row, targets[i])
	}
	return total / float64(len(logits))
}

// CrossEntropyGrad returns d(mean loss)/d(logits): (softmax - onehot) / batch.
func CrossEntropyGrad(logits [][]float64, targets []int) [][]float64 {
	if len(logits) != len(targets) {
		panic(fmt.Sprintf("nn: batch size mismatch: %d logits vs %d targets", len(logits), len(targets)))
	}
	invBatch := 1.0 / float64(len(logits))
	grads := make([][]float64, len(logits))
	for i, row := range logits {
		g := Softmax(row)
		g[targets[i]] -= 1
		for j := range g {
			g[j] *= invBatch
		}
		grads[i] = g
	}
	return grads
}
